package dashboard

import "html/template"

var pageTmpl = template.Must(template.New("").Funcs(template.FuncMap{
	"signed": signedPct,
}).Parse(`{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.}} · Market Breadth</title>
<style>
body{font-family:-apple-system,Segoe UI,Roboto,sans-serif;margin:0;padding:24px;background:#0e1117;color:#fafafa}
h1{font-size:1.6rem;margin:0 0 4px}
h2{font-size:1.2rem;margin:28px 0 10px}
a{color:#4c9be8}
nav{margin-bottom:18px;display:flex;gap:16px}
.sub{color:#9aa0a6;margin-bottom:20px}
.cards{display:flex;gap:16px;flex-wrap:wrap;margin-bottom:24px}
.card{background:#161a23;border-radius:8px;padding:14px 18px;min-width:160px}
.card .label{color:#9aa0a6;font-size:.85rem}
.card .value{font-size:1.6rem;font-weight:600}
.up{color:#21c354}.down{color:#ff4b4b}.flat{color:#9aa0a6}
.perf{display:flex;gap:10px;flex-wrap:wrap;margin-top:20px}
.perf div{background:#161a23;border-radius:6px;padding:8px 12px;text-align:center;min-width:64px}
table{border-collapse:collapse;background:#161a23;border-radius:8px}
th,td{padding:6px 12px;text-align:right;border-bottom:1px solid #222}
th:first-child,td:first-child{text-align:left}
.constituents{columns:4;list-style:none;padding:0}
svg{background:#161a23;border-radius:8px;width:100%;height:auto}
svg.rrg{max-width:720px}
select{background:#161a23;color:#fafafa;border:1px solid #333;padding:6px;border-radius:4px}
</style>
</head>
<body>
<nav><a href="/">Breadth</a><a href="/performance">Performance</a><a href="/rotation">Rotation</a></nav>
{{end}}

{{define "index"}}{{template "head" .Current.Name}}
<form method="get" action="/">
<select name="index" onchange="this.form.submit()">
{{range .Indices}}<option value="{{.Slug}}"{{if .Selected}} selected{{end}}>{{.Name}}</option>
{{end}}</select>
<noscript><button type="submit">Show</button></noscript>
</form>
<h1>{{.Current.Name}}: % of stocks above 200-day SMA</h1>
{{if .NoData}}
<p class="sub notice">No data yet for {{.Current.Name}}. Run <code>breadth run --index "{{.Current.Name}}"</code> to build the history.</p>
{{else}}
<div class="sub">Last updated {{.Updated}} · {{.Rows}} trading days since {{.From}}</div>
<div class="cards">
{{range .Cards}}<div class="card" data-metric="{{.Key}}"><div class="label">{{.Label}}</div><div class="value">{{.Value}}</div><div class="delta {{.Class}}">{{.Delta}}</div></div>
{{end}}</div>
<svg viewBox="{{.Chart.ViewBox}}" role="img" aria-label="Breadth percentage chart">
{{range .Chart.RefLines}}<line class="ref" x1="0" x2="{{$.Chart.Width}}" y1="{{.Y}}" y2="{{.Y}}" stroke="#555" stroke-dasharray="4 4"/><text x="-36" y="{{.Y}}" fill="#9aa0a6" font-size="11">{{.Label}}</text>
{{end}}<polyline class="breadth" fill="none" stroke="#4c9be8" stroke-width="1.5" points="{{.Chart.Points}}"/>
{{range .Chart.XLabels}}<text x="{{.X}}" y="{{$.Chart.LabelY}}" fill="#9aa0a6" font-size="11">{{.Text}}</text>
{{end}}</svg>
<h2>Market participation</h2>
<svg class="participation" viewBox="{{.Participation.ViewBox}}" role="img" aria-label="Stocks above and below the 200-day SMA">
<polygon class="below" fill="#ff4b4b" fill-opacity="0.55" points="{{.Participation.Below}}"/>
<polygon class="above" fill="#21c354" fill-opacity="0.55" points="{{.Participation.Above}}"/>
<text x="-36" y="4" fill="#9aa0a6" font-size="11">{{.Participation.Max}}</text>
{{range .Participation.XLabels}}<text x="{{.X}}" y="{{$.Participation.LabelY}}" fill="#9aa0a6" font-size="11">{{.Text}}</text>
{{end}}</svg>
{{if .Returns}}<h2>Index performance</h2>
<div class="perf">
{{range .Returns}}<div data-period="{{.Label}}"><div class="label">{{.Label}}</div>{{if .OK}}<div class="{{if ge .Return 0.0}}up{{else}}down{{end}}">{{signed .Return}}</div>{{else}}<div class="flat">n/a</div>{{end}}</div>
{{end}}</div>{{end}}
{{end}}
{{if .Constituents}}<h2>Constituents ({{len .Constituents}})</h2>
<ul class="constituents">
{{range .Constituents}}<li>{{.}}</li>
{{end}}</ul>{{end}}
</body>
</html>
{{end}}

{{define "performance"}}{{template "head" "Performance"}}
<h1>Cross-index performance</h1>
<div class="sub">Index returns by period, sorted by 1Y. RS(20D) compares each index with {{.Baseline}} over 20 days.</div>
{{if .Rows}}<table class="heatmap">
<thead><tr><th>Index</th><th>As of</th><th>Breadth</th>{{range .Periods}}<th>{{.}}</th>{{end}}<th>RS(20D)</th></tr></thead>
<tbody>
{{range .Rows}}<tr data-index="{{.Slug}}"><td><a href="/?index={{.Slug}}">{{.Name}}</a></td><td>{{.Date}}</td><td>{{printf "%.2f%%" .Breadth}}</td>{{range .Returns}}<td data-period="{{.Label}}" class="{{if not .OK}}flat{{else if ge .Return 0.0}}up{{else}}down{{end}}">{{if .OK}}{{signed .Return}}{{else}}n/a{{end}}</td>{{end}}<td class="rs {{if not .RSOK}}flat{{else if ge .RS 0.0}}up{{else}}down{{end}}">{{if .RSOK}}{{signed .RS}}{{else}}n/a{{end}}</td></tr>
{{end}}</tbody>
</table>{{else}}<p class="sub notice">No index has closing levels yet.</p>{{end}}
</body>
</html>
{{end}}

{{define "rotation"}}{{template "head" "Rotation"}}
<h1>Relative rotation vs {{.Baseline}}</h1>
<form method="get" action="/rotation">
<select name="tf">{{range .Timeframes}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}</select>
<label>Tail <input type="number" name="tail" min="1" max="{{.MaxTail}}" value="{{.Tail}}"></label>
<button type="submit">Show</button>
</form>
{{if .Series}}
<svg class="rrg" viewBox="{{.Chart.ViewBox}}" role="img" aria-label="Relative rotation graph">
{{range .Chart.Quadrants}}<rect class="quadrant" data-quadrant="{{.Name}}" x="{{.X}}" y="{{.Y}}" width="{{.W}}" height="{{.H}}" fill="{{.Fill}}" fill-opacity="0.12"/><text x="{{.LabelX}}" y="{{.LabelY}}" fill="{{.Fill}}" fill-opacity="0.5" font-size="22" text-anchor="middle">{{.Name}}</text>
{{end}}{{range .Series}}<polyline class="trail" data-index="{{.Slug}}" fill="none" stroke="{{.Color}}" stroke-width="1.5" points="{{.Points}}"/><circle cx="{{.HeadX}}" cy="{{.HeadY}}" r="5" fill="{{.Color}}"/><text x="{{.HeadX}}" y="{{.HeadY}}" dx="7" dy="-7" fill="{{.Color}}" font-size="12">{{.Name}}</text>
{{end}}</svg>
<table class="rotation">
<thead><tr><th>Index</th><th>As of</th><th>RS-Ratio</th><th>RS-Momentum</th><th>Quadrant</th></tr></thead>
<tbody>
{{range .Series}}<tr data-index="{{.Slug}}"><td>{{.Name}}</td><td>{{.Date}}</td><td>{{printf "%.2f" .Ratio}}</td><td>{{printf "%.2f" .Momentum}}</td><td class="quadrant">{{.Quadrant}}</td></tr>
{{end}}</tbody>
</table>
{{else}}<p class="sub notice">Not enough closing levels to place any index against {{.Baseline}}.</p>{{end}}
</body>
</html>
{{end}}`))
