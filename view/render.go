package view

import (
	"embed"
	"html/template"
	"io"
)

// TemplateName gin 渲染工作区页面时使用的模板名
const TemplateName = "workspace.html"

//go:embed templates/*.html
var templateFS embed.FS

var workspaceTemplate = template.Must(template.New(TemplateName).ParseFS(templateFS, "templates/"+TemplateName))

// Template 返回解析好的页面模板
func Template() *template.Template {
	return workspaceTemplate
}

func Render(w io.Writer, page Page) error {
	return workspaceTemplate.ExecuteTemplate(w, TemplateName, page)
}
