package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/railzwaylabs/modelrail/internal/aiaccount/domain"
	"github.com/railzwaylabs/modelrail/internal/config"
	"github.com/railzwaylabs/modelrail/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultTimeout   = 5 * time.Second
	anthropicVersion = "2023-06-01"
	anthropicModel   = "claude-3-haiku-20240307"
)

// endpoint describes how to issue the cheapest authenticated request a
// provider accepts.
type endpoint struct {
	method  string
	path    string
	body    []byte
	headers func(credential string) map[string]string
	query   func(credential string) url.Values
}

var endpoints = map[domain.Provider]endpoint{
	domain.ProviderOpenAI: {
		method: http.MethodGet,
		path:   "/v1/models",
		headers: func(credential string) map[string]string {
			return map[string]string{"Authorization": "Bearer " + credential}
		},
	},
	domain.ProviderAnthropic: {
		method: http.MethodPost,
		path:   "/v1/messages",
		body:   []byte(`{"model":"` + anthropicModel + `","max_tokens":1,"messages":[{"role":"user","content":"ping"}]}`),
		headers: func(credential string) map[string]string {
			return map[string]string{
				"x-api-key":         credential,
				"anthropic-version": anthropicVersion,
				"Content-Type":      "application/json",
			}
		},
	},
	domain.ProviderGoogle: {
		method: http.MethodGet,
		path:   "/v1/models",
		query: func(credential string) url.Values {
			return url.Values{"key": []string{credential}}
		},
	},
}

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

type Prober struct {
	client   *http.Client
	baseURLs map[domain.Provider]string
	log      *zap.Logger
}

func NewProber(p Params) domain.Prober {
	timeout := p.Cfg.Probe.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return New(&http.Client{Timeout: timeout}, map[domain.Provider]string{
		domain.ProviderOpenAI:    p.Cfg.Probe.OpenAIBaseURL,
		domain.ProviderAnthropic: p.Cfg.Probe.AnthropicBaseURL,
		domain.ProviderGoogle:    p.Cfg.Probe.GoogleBaseURL,
	}, p.Log)
}

func New(client *http.Client, baseURLs map[domain.Provider]string, log *zap.Logger) *Prober {
	return &Prober{
		client:   client,
		baseURLs: baseURLs,
		log:      log.Named("aiaccount.probe"),
	}
}

// Probe issues exactly one request. Transport and HTTP failures are reported
// in the result, never as an error.
func (p *Prober) Probe(ctx context.Context, provider domain.Provider, credential string) domain.ProbeResult {
	ep, ok := endpoints[provider]
	base := strings.TrimRight(p.baseURLs[provider], "/")
	if !ok || base == "" {
		return domain.ProbeResult{Message: fmt.Sprintf("不支持的提供商: %s", provider)}
	}

	ctx, span := otel.Tracer("modelrail/aiaccount").Start(ctx, "probe.provider")
	span.SetAttributes(attribute.String("ai.provider", string(provider)))
	defer span.End()

	target := base + ep.path
	if ep.query != nil {
		target += "?" + ep.query(credential).Encode()
	}

	var body io.Reader
	if ep.body != nil {
		body = bytes.NewReader(ep.body)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, ep.method, target, body)
	if err != nil {
		return domain.ProbeResult{Message: fmt.Sprintf("网络错误: %v", err)}
	}
	if ep.headers != nil {
		for k, v := range ep.headers(credential) {
			req.Header.Set(k, v)
		}
	}

	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	observability.ProbeDuration.WithLabelValues(string(provider)).Observe(elapsed.Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		p.log.Debug("probe transport error", zap.String("provider", string(provider)), zap.Error(err))
		return domain.ProbeResult{
			ResponseTime: elapsed,
			Message:      fmt.Sprintf("网络错误: %s", transportCause(err)),
		}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, "status")
		return domain.ProbeResult{
			ResponseTime: elapsed,
			StatusCode:   resp.StatusCode,
			Message:      fmt.Sprintf("API响应错误: HTTP %d", resp.StatusCode),
		}
	}

	return domain.ProbeResult{
		Success:      true,
		ResponseTime: elapsed,
		StatusCode:   resp.StatusCode,
		Message:      "连接成功",
	}
}

// transportCause strips the method and URL from *url.Error so credentials in
// query strings never reach messages.
func transportCause(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err.Error()
	}
	return err.Error()
}
