// Package dashboard serves the Open SUD Data web pages.
package dashboard

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"opensud/config"
	"opensud/source"
	"opensud/utils"
)

// log a convenience wrapper to shorten code lines
var log = &utils.Logger

//go:embed templates/*.html
var templatesFS embed.FS

const (
	// Brand is shown in the navigation bar and the window title.
	Brand = "Open SUD Data"
	// FlatlyTheme the Bootswatch FLATLY stylesheet.
	FlatlyTheme = "https://cdn.jsdelivr.net/npm/bootswatch@5.3.3/dist/flatly/bootstrap.min.css"

	layoutTemplate = "layout.html"
)

var (
	ErrDuplicatePath = errors.New("page path is already registered")
	ErrInvalidPage   = errors.New("invalid page")
)

// Page is a single navigable page of the dashboard.
type Page struct {
	// Path the URL path, it must start with "/"
	Path string
	// Name the label of the navigation item
	Name string
	// Title of the browser window, Name is used when empty
	Title string
	// Template the name of the embedded template rendering the page body
	Template string
}

// Dashboard is an ordered registry of pages; the registration order is the navigation order.
type Dashboard struct {
	pages []Page
	// data is passed to every page template
	data gin.H
}

func New() *Dashboard {
	return &Dashboard{
		data: gin.H{
			"Descriptor": source.MedicaidProviderSpending,
			"Dataset":    config.DefaultDataset,
			"Table":      config.DefaultTable,
		},
	}
}

// Default returns the dashboard with the Home and About pages.
func Default() *Dashboard {
	d := New()
	for _, page := range []Page{
		{Path: "/", Name: "Home", Template: "home.html"},
		{Path: "/about", Name: "About", Template: "about.html"},
	} {
		if err := d.Register(page); err != nil {
			panic(err)
		}
	}
	return d
}

// Register adds a page, a path can be registered only once.
func (d *Dashboard) Register(page Page) error {
	if strings.TrimSpace(page.Name) == "" {
		return fmt.Errorf("%w: the page at '%s' has no name", ErrInvalidPage, page.Path)
	}
	if !strings.HasPrefix(page.Path, "/") {
		return fmt.Errorf("%w: the path of page '%s' must start with '/', got '%s'", ErrInvalidPage, page.Name, page.Path)
	}
	for _, p := range d.pages {
		if p.Path == page.Path {
			return fmt.Errorf("%w: '%s' (page '%s')", ErrDuplicatePath, page.Path, p.Name)
		}
	}
	if page.Title == "" {
		page.Title = page.Name
	}
	d.pages = append(d.pages, page)
	return nil
}

// Pages returns the registered pages in navigation order.
func (d *Dashboard) Pages() []Page {
	return append([]Page(nil), d.pages...)
}

type navItem struct {
	Name   string
	Path   string
	Active bool
}

func (d *Dashboard) navigation(active string) []navItem {
	items := make([]navItem, 0, len(d.pages))
	for _, p := range d.pages {
		items = append(items, navItem{Name: p.Name, Path: p.Path, Active: p.Path == active})
	}
	return items
}

// Router builds the HTTP handler: one GET route per page, plus /health.
func (d *Dashboard) Router() (*gin.Engine, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse the page templates: %w", err)
	}
	for _, page := range d.pages {
		if templates.Lookup(page.Template) == nil {
			return nil, fmt.Errorf("%w: template '%s' of page '%s' not found", ErrInvalidPage, page.Template, page.Name)
		}
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.SetHTMLTemplate(templates)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for _, page := range d.pages {
		r.GET(page.Path, d.pageHandler(templates, page))
	}
	return r, nil
}

func (d *Dashboard) pageHandler(templates *template.Template, page Page) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body bytes.Buffer
		if err := templates.ExecuteTemplate(&body, page.Template, d.data); err != nil {
			_ = c.Error(err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.HTML(http.StatusOK, layoutTemplate, gin.H{
			"Brand": Brand,
			"Theme": FlatlyTheme,
			"Title": page.Title,
			"Nav":   d.navigation(page.Path),
			"Body":  template.HTML(body.String()),
		})
	}
}

// requestLogger reports every request to the shared logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			log.Error("Request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		log.Debug("Request", fields...)
	}
}
