package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rotisserie/eris"
)

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "analysis: encode json report")
	}
	return nil
}

// WriteText writes the plain-text report with aligned tables.
func WriteText(w io.Writer, r Report) error {
	var b strings.Builder
	b.WriteString("REPORTE DE ANÁLISIS - DATOS DE EMPRESAS\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Fecha de generación: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("ESTADÍSTICAS BÁSICAS:\n")
	fmt.Fprintf(&b, "- Total de registros: %d\n", r.Basic.Records)
	fmt.Fprintf(&b, "- Total de columnas: %d\n\n", r.Basic.Columns)

	b.WriteString("ANÁLISIS DE CIUDADES:\n")
	fmt.Fprintf(&b, "- Ciudades únicas: %d\n", r.Cities.Unique)
	b.WriteString("- Top 10 ciudades:\n")
	cityRows := [][]string{{"Ciudad", "Empresas", "%"}}
	for _, c := range r.Cities.Top {
		cityRows = append(cityRows, []string{c.Value, strconv.Itoa(c.Count), formatFloat(c.Share * 100)})
	}
	writeTable(&b, cityRows)

	b.WriteString("\nANÁLISIS DE GERENTES:\n")
	fmt.Fprintf(&b, "- Gerentes únicos: %d\n", r.Managers.Unique)
	fmt.Fprintf(&b, "- Gerentes en múltiples empresas: %d\n", r.Managers.MultiCompany)

	b.WriteString("\nANÁLISIS DE CÓDIGOS DANE:\n")
	fmt.Fprintf(&b, "- Códigos únicos: %d\n", r.DANE.Unique)
	fmt.Fprintf(&b, "- Códigos inválidos: %d\n", r.DANE.Invalid)
	fmt.Fprintf(&b, "- Códigos DANE válidos: %s%%\n", formatFloat(r.DANE.ValidPercent))

	b.WriteString("\nANÁLISIS DE TELÉFONOS:\n")
	fmt.Fprintf(&b, "- Teléfonos principales válidos: %s%%\n", formatFloat(r.Phones.Phone1Percent))
	fmt.Fprintf(&b, "- Teléfonos secundarios válidos: %s%%\n", formatFloat(r.Phones.Phone2Percent))
	fmt.Fprintf(&b, "- Teléfonos de 10 dígitos: %s%%\n", formatFloat(r.Phones.TenDigitPercent))

	b.WriteString("\nCALIDAD DE DATOS:\n")
	fmt.Fprintf(&b, "- Porcentaje total de valores nulos: %s%%\n", formatFloat(r.Nulls.TotalPercent))
	cols := make([]string, 0, len(r.Nulls.PercentByColumn))
	for col := range r.Nulls.PercentByColumn {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	nullRows := [][]string{{"Columna", "Nulos", "%"}}
	for _, col := range cols {
		nullRows = append(nullRows, []string{
			col, strconv.Itoa(r.Nulls.ByColumn[col]), formatFloat(r.Nulls.PercentByColumn[col]),
		})
	}
	writeTable(&b, nullRows)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return eris.Wrap(err, "analysis: write text report")
	}
	return nil
}

// writeTable writes rows as a pipe table padded to display width, so
// accented names stay aligned.
func writeTable(b *strings.Builder, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	line := func(row []string) {
		b.WriteString("  |")
		for i, cell := range row {
			b.WriteString(" ")
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell)))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	line(rows[0])
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	line(sep)
	for _, row := range rows[1:] {
		line(row)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
