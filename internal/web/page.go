package web

import (
	"html/template"
	"strconv"

	"weekgrid/internal/theme"
)

var pageFuncs = template.FuncMap{
	"px": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 2, 64) + "px"
	},
	// color lets rgb()/rgba() through the CSS filter once it is known to
	// be a plain color; anything else renders transparent.
	"color": func(c string) template.CSS {
		if !theme.ValidColor(c) {
			return "transparent"
		}
		return template.CSS(c)
	},
}

var timetablePage = template.Must(template.New("timetable").Funcs(pageFuncs).Parse(tmplTimetable))

// The header row never takes scroll input; #days drives it through the
// scroll listener below.
const tmplTimetable = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>weekgrid</title>
<style>
*{box-sizing:border-box}
body{margin:0;font-family:sans-serif;background:{{color .Theme.Background}};color:{{color .Theme.Text}}}
.wg-head{display:flex;border-bottom:1px solid {{color .Variants.GridStroke}}}
.wg-corner{flex:none}
#header{overflow:hidden;flex:1;pointer-events:none}
.wg-head-row{display:flex}
.wg-day{flex:none;text-align:center;font-size:12px;padding:6px 0;color:{{color .Variants.MutedText}}}
.wg-day.current{color:{{color .Theme.Primary}};font-weight:700}
#vertical{overflow-y:auto;height:calc(100vh - 32px)}
.wg-body{display:flex}
.wg-axis{flex:none;position:relative}
.wg-tick{position:absolute;right:4px;font-size:10px;color:{{color .Variants.MutedText}}}
#days{overflow-x:auto;flex:1}
.wg-canvas{position:relative;background-image:linear-gradient(to right,{{color .Variants.GridStroke}} 1px,transparent 1px),linear-gradient(to bottom,{{color .Variants.GridStroke}} 1px,transparent 1px)}
.wg-card{position:absolute;padding:1px;overflow:hidden}
.wg-card-body{height:100%;border-radius:4px;padding:2px 4px;font-size:11px;color:#fff;overflow:hidden}
.wg-card-title{font-weight:700}
.wg-card-link{display:block;height:100%;text-decoration:none}
.wg-now{position:absolute;height:2px;background:{{color .Theme.Accent}}}
</style>
</head>
<body>
<div id="root" data-dataset="{{.DatasetID}}">
  <div class="wg-head">
    <div class="wg-corner" style="width:{{px .Geometry.TimeAxisWidth}}"></div>
    <div id="header">
      <div class="wg-head-row" style="width:{{px .Geometry.CanvasWidth}}">
        {{- range .Weekdays}}
        <div class="wg-day{{if .IsCurrent}} current{{end}}" style="width:{{px $.Geometry.CellWidth}}">{{.Label}}</div>
        {{- end}}
      </div>
    </div>
  </div>
  <div id="vertical">
    <div class="wg-body">
      <div class="wg-axis" style="width:{{px .Geometry.TimeAxisWidth}};height:{{px .Geometry.CanvasHeight}}">
        {{- range .Ticks}}
        <div class="wg-tick" style="top:{{px .Top}}">{{.Label}}</div>
        {{- end}}
      </div>
      <div id="days">
        <div class="wg-canvas" style="width:{{px .Geometry.CanvasWidth}};height:{{px .Geometry.CanvasHeight}};background-size:{{px .Geometry.CellWidth}} {{px .Geometry.CellHeight}}">
          {{- range .Events}}
          <div class="wg-card" data-key="{{.Key}}" data-course-id="{{.CourseID}}" style="top:{{px .Top}};left:{{px .Left}};width:{{px .Width}};height:{{px .Height}}">
            {{- with index $.Links .Key}}<a class="wg-card-link" href="{{.}}">{{end}}
            <div class="wg-card-body" style="background:{{color .Color}}">
              <div class="wg-card-title">{{if .Title}}{{.Title}}{{else}}{{.CourseID}}{{end}}</div>
              {{- if .Section}}<div>{{.Section}}</div>{{end}}
              {{- if .Location}}<div>{{.Location}}</div>{{end}}
            </div>
            {{- if index $.Links .Key}}</a>{{end}}
          </div>
          {{- end}}
          {{- if .Now.Visible}}
          <div class="wg-now" style="top:{{px .Now.Top}};left:{{px .Now.Left}};width:{{px .Now.Width}}"></div>
          {{- end}}
        </div>
      </div>
    </div>
  </div>
</div>
<script>
(function () {
  var header = document.getElementById("header");
  var days = document.getElementById("days");
  var vertical = document.getElementById("vertical");
  days.addEventListener("scroll", function () {
    header.scrollLeft = days.scrollLeft;
  }, {passive: true});
  {{- if .Scroll.Targets.ScrollsDown}}
  vertical.scrollTop = {{.Scroll.Targets.Vertical}};
  {{- end}}
  {{- if .Scroll.Targets.ScrollsAcross}}
  days.scrollLeft = {{.Scroll.Targets.Horizontal}};
  header.scrollLeft = days.scrollLeft;
  {{- end}}
  document.getElementById("root").setAttribute("data-ready", "true");
})();
</script>
</body>
</html>
`
