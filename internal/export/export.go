// Package export renders the spreadsheets offered for download. Files are
// ";"-separated with pt-BR numbers, the way local spreadsheet tools expect.
package export

import (
	"strconv"
	"strings"
	"time"

	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/numfmt"
)

const (
	separator  = ";"
	dateLayout = "02/01/2006 15:04"
)

var (
	salesHeader     = []string{"Data", "Venda", "Cliente", "Pagamento", "Itens", "Total", "Recebido"}
	customersHeader = []string{"Nome", "Telefone", "Endereço", "Bairro", "Cidade", "Data cadastro"}
)

var safeReplacer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ", ";", ",")

// Safe keeps a free-text value inside its cell.
func Safe(s string) string {
	return safeReplacer.Replace(s)
}

func SalesCSV(rows []domain.SaleRow, loc *time.Location) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(salesHeader, separator))
	for _, r := range rows {
		customer := r.CustomerName
		if strings.TrimSpace(customer) == "" {
			customer = domain.UndefinedCustomer
		}
		lines = append(lines, strings.Join([]string{
			formatTime(r.CreatedAt, loc),
			strconv.FormatInt(r.SaleNumber, 10),
			Safe(customer),
			Safe(r.PaymentMethod),
			strconv.Itoa(r.ItemCount),
			numfmt.FormatMoney(r.TotalFinal),
			numfmt.FormatMoney(r.ReceivedTotal),
		}, separator))
	}
	return strings.Join(lines, "\n") + "\n"
}

func CustomersCSV(customers []domain.Customer, loc *time.Location) string {
	lines := make([]string, 0, len(customers)+1)
	lines = append(lines, strings.Join(customersHeader, separator))
	for _, c := range customers {
		lines = append(lines, strings.Join([]string{
			Safe(c.Name),
			Safe(c.Phone),
			Safe(c.Address),
			Safe(c.Neighborhood),
			Safe(c.City),
			formatTime(c.CreatedAt, loc),
		}, separator))
	}
	return strings.Join(lines, "\n") + "\n"
}

// FileName builds names like "vendas-2025-03-10.csv".
func FileName(prefix string, at time.Time) string {
	return prefix + "-" + at.Format("2006-01-02") + ".csv"
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dateLayout)
}
