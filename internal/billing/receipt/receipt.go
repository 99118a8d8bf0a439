package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Receipt is the data printed on a payment receipt.
type Receipt struct {
	Issuer      string
	Number      string
	CustomerRef string
	Description string
	Amount      float64
	Currency    string
	ChargeID    string
	PaidAt      time.Time
}

var (
	labelStyle = props.Text{Size: 9, Style: fontstyle.Bold, Top: 1}
	valueStyle = props.Text{Size: 9, Top: 1}
)

// Render lays out r as a single-page PDF.
func Render(r Receipt) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	issuer := strings.TrimSpace(r.Issuer)
	if issuer == "" {
		issuer = "modelrail"
	}
	m.AddRows(
		text.NewRow(12, issuer, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Left}),
		text.NewRow(8, "Payment receipt", props.Text{Size: 11, Align: align.Left}),
		line.NewRow(6),
	)

	m.AddRow(7, text.NewCol(4, "Receipt number", labelStyle), text.NewCol(8, r.Number, valueStyle))
	m.AddRow(7, text.NewCol(4, "Customer", labelStyle), text.NewCol(8, r.CustomerRef, valueStyle))
	m.AddRow(7, text.NewCol(4, "Paid at", labelStyle), text.NewCol(8, formatTime(r.PaidAt), valueStyle))
	if r.ChargeID != "" {
		m.AddRow(7, text.NewCol(4, "Charge", labelStyle), text.NewCol(8, r.ChargeID, valueStyle))
	}

	m.AddRows(line.NewRow(6))
	m.AddRow(8,
		text.NewCol(8, r.Description, props.Text{Size: 10}),
		text.NewCol(4, FormatAmount(r.Amount, r.Currency), props.Text{Size: 10, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(8, "Total", props.Text{Size: 11, Style: fontstyle.Bold, Top: 2}),
		text.NewCol(4, FormatAmount(r.Amount, r.Currency), props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right, Top: 2}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return doc.GetBytes(), nil
}

func FormatAmount(amount float64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	switch currency {
	case "JPY", "KRW":
		return fmt.Sprintf("%.0f %s", amount, currency)
	default:
		return fmt.Sprintf("%.2f %s", amount, currency)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}
