package http

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mrlokans/librarydesk/internal/entities"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var templateFuncs = template.FuncMap{
	"add":      func(a, b int) int { return a + b },
	"subtract": func(a, b int) int { return a - b },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
	"optdate": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("2006-01-02")
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"overdue": func(b entities.Borrowing, now time.Time) bool {
		return b.IsOverdue(now)
	},
	"daysOverdue": func(b entities.Borrowing, now time.Time) int {
		return b.DaysOverdue(now)
	},
	"dict":     dict,
	"filters":  filters,
	"pageLink": pageLink,
}

// dict builds a map from key/value pairs so a template can pass several values to another.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[key] = kv[i+1]
	}
	return m, nil
}

// filters collects the non-empty list filters that paging links must keep.
func filters(kv ...any) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		val := fmt.Sprint(kv[i+1])
		if key == "" || val == "" || val == "0" {
			continue
		}
		v.Set(key, val)
	}
	return v
}

func pageLink(page int, v url.Values) string {
	q := url.Values{}
	for k, vals := range v {
		q[k] = vals
	}
	q.Set("page", strconv.Itoa(page))
	return "?" + q.Encode()
}

// LoadTemplates parses the page templates from dir, or the embedded set when dir is empty.
// The same set renders librarian pages and the login and account setup forms.
func LoadTemplates(dir string) (*template.Template, error) {
	tmpl := template.New("").Funcs(templateFuncs)
	if dir == "" {
		parsed, err := tmpl.ParseFS(templateFS, "templates/*.html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded templates: %w", err)
		}
		return parsed, nil
	}

	parsed, err := tmpl.ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates in %s: %w", dir, err)
	}
	return parsed, nil
}

// staticFileSystem serves dir, or the embedded assets when dir is empty.
func staticFileSystem(dir string) http.FileSystem {
	if dir != "" {
		return http.Dir(dir)
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
