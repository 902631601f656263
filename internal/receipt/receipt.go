package receipt

import (
	"fmt"
	"strings"

	"github.com/tranqhuy/bida-pos/internal/config"
	"github.com/tranqhuy/bida-pos/internal/pos"
)

const width = 32 // 80mm thermal paper, default font

// Printer renders a plain-text receipt for the thermal printer. The bill
// shows the items side and the table fee as separate lines, matching how
// the totals are computed.
type Printer struct {
	Shop config.ShopConfig
}

// Lines holds the non-item amounts of the bill.
type Lines struct {
	TableFee  int64
	TimeLabel string
	Discount  int64
	Total     int64
}

func (p Printer) Render(o pos.Order, tableName string, b Lines) string {
	var sb strings.Builder

	center(&sb, p.Shop.Name)
	center(&sb, p.Shop.Address)
	center(&sb, p.Shop.Phone)
	rule(&sb)

	row(&sb, "Ban", tableName)
	row(&sb, "Ngay", o.Date.Format("02/01/2006 15:04"))
	rule(&sb)

	for _, it := range o.Items {
		sb.WriteString(it.Name + "\n")
		row(&sb, fmt.Sprintf("  %d x %s", it.Qty, money(it.Price)), money(it.Price*int64(it.Qty)))
	}
	if b.TableFee > 0 || b.TimeLabel != "" {
		sb.WriteString("Tien ban\n")
		row(&sb, "  "+b.TimeLabel, money(b.TableFee))
	}
	rule(&sb)

	if b.Discount > 0 {
		row(&sb, "Giam gia", "-"+money(b.Discount))
	}
	row(&sb, "TONG CONG", money(b.Total))

	for _, n := range o.Notes {
		if n != "" {
			sb.WriteString("* " + n + "\n")
		}
	}
	rule(&sb)
	center(&sb, p.Shop.ReceiptFooter)
	return sb.String()
}

// money groups thousands: 1234567 -> 1.234.567d
func money(v int64) string {
	if v < 0 {
		return "-" + money(-v)
	}
	s := fmt.Sprintf("%d", v)
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, c)
	}
	return string(out) + "d"
}

func row(sb *strings.Builder, left, right string) {
	pad := width - len(left) - len(right)
	if pad < 1 {
		pad = 1
	}
	sb.WriteString(left + strings.Repeat(" ", pad) + right + "\n")
}

func center(sb *strings.Builder, s string) {
	if s == "" {
		return
	}
	pad := (width - len(s)) / 2
	if pad < 0 {
		pad = 0
	}
	sb.WriteString(strings.Repeat(" ", pad) + s + "\n")
}

func rule(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("-", width) + "\n")
}
