package report

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"dataprof/internal/profile"
)

var htmlTmpl = template.Must(template.New("dataset").Funcs(template.FuncMap{
	"grouped": n,
	"pct":     func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
	"avg":     func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"join":    strings.Join,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Profile: {{.Name}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; margin-bottom: 1.5rem; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
th { background: #f0f0f0; }
.invalid { color: #b00020; font-weight: bold; }
.valid { color: #1b5e20; font-weight: bold; }
</style>
</head>
<body>
<h1>{{.Name}}</h1>
<p>{{.Description}}</p>
<table id="summary">
<tr><th>File</th><td>{{.File}}</td></tr>
<tr><th>Rows</th><td>{{grouped .RowCount}}</td></tr>
<tr><th>Columns</th><td>{{.ColumnCount}}</td></tr>
</table>

{{if .Key}}
<h2>Key Validation</h2>
<table id="key">
<tr><th>Columns</th><th>Null Count</th><th>Duplicate Count</th><th>Status</th></tr>
<tr>
<td>{{join .Key.Columns ", "}}</td>
<td>{{grouped .Key.NullCount}}</td>
<td>{{grouped .Key.DuplicateCount}}</td>
<td>{{if .Key.Valid}}<span class="valid">VALID</span>{{else}}<span class="invalid">INVALID</span>{{end}}</td>
</tr>
</table>
{{end}}

<h2>Columns</h2>
<table id="columns">
<tr><th>Column</th><th>Null Count</th><th>Null %</th><th>Unique</th><th>Cardinality %</th><th>Likely Numeric</th><th>Empty</th><th>'none'</th><th>'unknown'</th><th>Samples</th></tr>
{{$p := .}}
{{range .ColumnOrder}}{{with index $p.Columns .}}
<tr>
<td>{{.Name}}</td>
<td>{{grouped .NullCount}}</td>
<td>{{pct .NullPercentage}}</td>
<td>{{grouped .UniqueCount}}</td>
<td>{{pct .CardinalityRatio}}</td>
<td>{{.LikelyNumeric}}</td>
<td>{{grouped .EmptyStringCount}}</td>
<td>{{grouped .NoneLiteralCount}}</td>
<td>{{grouped .UnknownLiteralCount}}</td>
<td>{{join .SampleValues ", "}}</td>
</tr>
{{end}}{{end}}
</table>

{{if .MultiValueOrder}}
<h2>Multi-Value Fields</h2>
<table id="multivalue">
<tr><th>Column</th><th>Min</th><th>Max</th><th>Avg</th><th>Distinct</th><th>Top Values</th></tr>
{{range .MultiValueOrder}}{{with index $p.MultiValue .}}
<tr>
<td>{{.Name}}</td>
<td>{{.MinValuesPerRow}}</td>
<td>{{.MaxValuesPerRow}}</td>
<td>{{avg .AvgValuesPerRow}}</td>
<td>{{grouped .TotalDistinctValues}}</td>
<td>{{range $i, $t := .TopValues}}{{if $i}}, {{end}}{{$t.Token}} ({{$t.Count}}){{end}}</td>
</tr>
{{end}}{{end}}
</table>
{{end}}
</body>
</html>
`))

// WriteHTML renders one dataset profile as a standalone HTML page.
func WriteHTML(w io.Writer, p *profile.DatasetProfile) error {
	if err := htmlTmpl.Execute(w, p); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}
