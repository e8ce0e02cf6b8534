package httpserver

import (
	"html/template"
	"net/http"

	"github.com/dmitrijs2005/inkstudio/internal/logging"
	"github.com/dmitrijs2005/inkstudio/internal/server/models"
	"github.com/dmitrijs2005/inkstudio/internal/server/services"
)

var pageTemplates = template.Must(template.New("layout").Parse(`
{{define "head"}}<!doctype html>
<html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.}}</title></head><body>{{end}}

{{define "index"}}{{template "head" "Ink Studio"}}
<h1>Gallery</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<ul class="gallery">
{{range .Images}}<li><img src="{{.ImageURL}}" alt="{{.Title}}" loading="lazy"><h2>{{.Title}}</h2><p>{{.Description}}</p></li>
{{end}}</ul>
{{if .HasMore}}<a href="/?after={{.LastImageID}}">More</a>{{end}}
</body></html>{{end}}

{{define "login"}}{{template "head" "Admin login"}}
<form id="login">
<input name="email" type="email" placeholder="Email" required>
<input name="password" type="password" placeholder="Password" required>
<label><input name="rememberMe" type="checkbox"> Remember me</label>
<button type="submit">Sign in</button>
<p id="msg"></p>
</form>
<script>
document.getElementById('login').addEventListener('submit', async (e) => {
  e.preventDefault();
  const f = e.target;
  const res = await fetch('/api/admin/login', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({email: f.email.value, password: f.password.value, rememberMe: f.rememberMe.checked}),
  });
  if (res.ok) { location.href = '/admin'; return; }
  const body = await res.json().catch(() => ({}));
  document.getElementById('msg').textContent = body.error || 'Login failed';
});
</script>
</body></html>{{end}}

{{define "admin"}}{{template "head" "Gallery admin"}}
<h1>Gallery admin</h1>
<p>{{.Stats.TotalImages}} images, about {{.Stats.StorageUsedMB}} MB of {{.Stats.StorageLimitMB}} MB</p>
<button id="logout" type="button">Log out</button>
<script>
document.getElementById('logout').addEventListener('click', async () => {
  await fetch('/api/admin/logout', {method: 'POST'}).catch(() => {});
  location.href = '/admin/login';
});
</script>
<ol>
{{range .Images}}<li data-id="{{.ID}}"><img src="{{.ImageURL}}" alt="{{.Title}}" width="120"> {{.Title}} (order {{.Order}})</li>
{{end}}</ol>
</body></html>{{end}}
`))

type indexPage struct {
	services.PageResult
}

type adminPage struct {
	Images []models.GalleryImage
	Stats  *services.Stats
}

type pages struct {
	gallery GalleryService
	logger  logging.Logger
}

func (p *pages) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		p.logger.Error(r.Context(), "render page", "page", name, "error", err)
	}
}

func (p *pages) index(w http.ResponseWriter, r *http.Request) {
	res := p.gallery.Page(r.Context(), 0, r.URL.Query().Get("after"))
	p.render(w, r, "index", indexPage{PageResult: res})
}

func (p *pages) login(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, "login", nil)
}

func (p *pages) admin(w http.ResponseWriter, r *http.Request) {
	images, err := p.gallery.ListAll(r.Context())
	if err != nil {
		p.logger.Error(r.Context(), "admin page listing", "error", err)
		http.Error(w, "Unable to load gallery", http.StatusInternalServerError)
		return
	}
	st, err := p.gallery.Stats(r.Context())
	if err != nil {
		p.logger.Error(r.Context(), "admin page stats", "error", err)
		http.Error(w, "Unable to load gallery", http.StatusInternalServerError)
		return
	}
	p.render(w, r, "admin", adminPage{Images: images, Stats: st})
}
