package output

import (
	"encoding/csv"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kameel77/auto-scraper/pkg/models"
)

// ListSeparator joins list values inside one CSV cell
const ListSeparator = " | "

type column struct {
	name  string
	value func(*models.Offer) string
}

// columns follow the field order of models.Offer. Equipment expands into
// one column per canonical category.
var columns = buildColumns()

func buildColumns() []column {
	var cols []column
	t := reflect.TypeOf(models.Offer{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		idx := i
		if f.Type == reflect.TypeOf(models.Equipment{}) {
			for _, c := range models.EquipmentCategories {
				category := c
				cols = append(cols, column{
					name:  "equipment_" + string(category),
					value: func(o *models.Offer) string { return strings.Join(o.Equipment[category], ListSeparator) },
				})
			}
			continue
		}
		cols = append(cols, column{
			name: name,
			value: func(o *models.Offer) string {
				return cell(reflect.ValueOf(o).Elem().Field(idx))
			},
		})
	}
	return cols
}

func cell(v reflect.Value) string {
	switch x := v.Interface().(type) {
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(time.RFC3339)
	case []string:
		return strings.Join(x, ListSeparator)
	case map[string]string:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + x[k]
		}
		return strings.Join(parts, ListSeparator)
	case *int:
		if x == nil {
			return ""
		}
		return strconv.Itoa(*x)
	case *float64:
		if x == nil {
			return ""
		}
		return strconv.FormatFloat(*x, 'f', -1, 64)
	}
	if v.Kind() == reflect.String {
		return v.String()
	}
	return ""
}

// Header returns the CSV column names in output order
func Header() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.name
	}
	return out
}

// SaveCSV writes records to a CSV file with a fixed column order
func SaveCSV(records []*models.Offer, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(Header()); err != nil {
		return err
	}

	row := make([]string, len(columns))
	for _, o := range records {
		for i, c := range columns {
			row[i] = c.value(o)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
