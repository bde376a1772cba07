// Package output provides output formatting for the clubmesh CLI.
package output

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

// TableFormatter renders rows as aligned columns. Column names come
// from json tags; columns tagged `table:"wide"` only appear in wide
// mode, `table:"-"` never.
type TableFormatter struct {
	Wide      bool
	NoHeaders bool
}

// Format renders a slice of structs as a table, a map or single
// struct as key/value pairs.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		return nil
	}

	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return f.writeRows(tw, v)
	case reflect.Map:
		return f.writePairs(tw, sortedPairs(v))
	case reflect.Struct:
		return f.writePairs(tw, structPairs(v))
	default:
		return fmt.Errorf("cannot tabulate %s", v.Kind())
	}
}

func (f *TableFormatter) writeRows(tw *tabwriter.Writer, v reflect.Value) error {
	if v.Len() == 0 {
		return nil
	}

	first := reflect.Indirect(v.Index(0))
	if first.Kind() == reflect.Interface {
		first = first.Elem()
	}
	if first.Kind() != reflect.Struct {
		for i := 0; i < v.Len(); i++ {
			fmt.Fprintf(tw, "%s\n", cell(reflect.Indirect(v.Index(i))))
		}
		return nil
	}

	cols := f.columns(first.Type())
	if !f.NoHeaders {
		names := make([]string, len(cols))
		for i, col := range cols {
			names[i] = strings.ToUpper(col.name)
		}
		fmt.Fprintf(tw, "%s\n", strings.Join(names, "\t"))
	}

	for i := 0; i < v.Len(); i++ {
		elem := reflect.Indirect(v.Index(i))
		cells := make([]string, len(cols))
		for j, col := range cols {
			cells[j] = cell(elem.Field(col.index))
		}
		fmt.Fprintf(tw, "%s\n", strings.Join(cells, "\t"))
	}
	return nil
}

func (f *TableFormatter) writePairs(tw *tabwriter.Writer, pairs [][2]string) error {
	for _, pair := range pairs {
		fmt.Fprintf(tw, "%s\t%s\n", pair[0], pair[1])
	}
	return nil
}

type column struct {
	name  string
	index int
}

func (f *TableFormatter) columns(t reflect.Type) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		switch field.Tag.Get("table") {
		case "-":
			continue
		case "wide":
			if !f.Wide {
				continue
			}
		}
		cols = append(cols, column{name: columnName(field), index: i})
	}
	return cols
}

// columnName prefers the json tag over the Go field name.
func columnName(field reflect.StructField) string {
	if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag != "" && tag != "-" {
		return tag
	}
	return field.Name
}

// sortedPairs renders map entries in key order so output is stable.
func sortedPairs(v reflect.Value) [][2]string {
	pairs := make([][2]string, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		pairs = append(pairs, [2]string{cell(iter.Key()), cell(iter.Value())})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	return pairs
}

func structPairs(v reflect.Value) [][2]string {
	t := v.Type()
	var pairs [][2]string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("table") == "-" {
			continue
		}
		pairs = append(pairs, [2]string{columnName(field), cell(v.Field(i))})
	}
	return pairs
}

// cell renders one value for display. Empty and zero values show as
// a dash.
func cell(v reflect.Value) string {
	if !v.IsValid() {
		return "-"
	}
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "-"
		}
		v = v.Elem()
	}

	if v.Type() == reflect.TypeOf(time.Time{}) {
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04")
	}

	switch v.Kind() {
	case reflect.String:
		if v.String() == "" {
			return "-"
		}
		return v.String()
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}
