package graphing

import (
	"html/template"
	"time"
)

// HTML fragments injected into the go-echarts page.
var templates = template.Must(template.New("").Funcs(templateFuncs).Parse(`
{{define "styles"}}
<style>
* {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif;
}
body {
    max-width: 1400px;
    margin: 0 auto;
    padding: 20px;
}
.session-header {
    border-bottom: 2px solid #333;
    padding-bottom: 10px;
    margin-bottom: 15px;
}
.session-header h1 {
    margin: 0;
    font-size: 18px;
}
.session-meta {
    font-size: 11px;
    color: #666;
    font-family: monospace;
}
.container {
    display: block !important;
    margin: 0 0 10px 0 !important;
    padding: 15px !important;
    background: #f5f5f5 !important;
    border: 1px solid #ddd !important;
    overflow: hidden !important;
}
.item {
    margin: 0 !important;
}
</style>
{{end}}

{{define "header"}}
<div class="session-header">
    <h1>{{.Title}}</h1>
    <div class="session-meta">
        {{if .Session}}Session: {{.Session}} · {{end}}Tick: {{.Tick}} · Window: {{.MaxSamples}} samples{{if .Period}} · Period: {{.Period}}{{end}} · Rendered: {{.Rendered | formatTime}}
    </div>
</div>
{{end}}

{{define "scripts"}}
<script>
window.addEventListener('resize', function() {
    document.querySelectorAll('[_echarts_instance_]').forEach(function(el) {
        var c = echarts.getInstanceByDom(el);
        if (c) c.resize();
    });
});
{{if .Live}}
(function() {
    if (!window.EventSource) {
        setInterval(function() { location.reload(); }, {{.RefreshMillis}});
        return;
    }
    var rendered = {{.Tick}};
    var pending = null;
    var src = new EventSource({{.EventsURL}});
    src.addEventListener('tick', function(e) {
        var ev = JSON.parse(e.data);
        if (pending || !(ev.tick > rendered)) return;
        pending = setTimeout(function() { location.reload(); }, 200);
    });
})();
{{end}}
</script>
{{end}}
`))

var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04:05")
	},
}
