package cleaner

import (
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/empresas-cli/internal/model"
)

// ColumnType is the inferred storage type of a column.
type ColumnType string

const (
	TypeEmpty   ColumnType = "empty"
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
	TypeText    ColumnType = "text"
)

// InferType infers the type of column col from its present values. A column
// is numeric only if every present value parses as a number.
func InferType(t *model.Table, col int) ColumnType {
	typ := TypeEmpty
	for _, r := range t.Rows {
		c := r[col]
		if !c.Valid {
			continue
		}
		v := strings.TrimSpace(c.Value)
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			if typ == TypeEmpty {
				typ = TypeInteger
			}
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			typ = TypeFloat
			continue
		}
		return TypeText
	}
	return typ
}
