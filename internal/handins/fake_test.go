package handins

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const (
	testUsername = "student"
	testPassword = "correct horse battery staple"

	sessionCookie = "_handins_session"
	anonToken     = "anon-token"
	userToken     = "user-token"
)

const loginPage = `<!DOCTYPE html>
<html><head><meta name="csrf-token" content="anon-token"></head>
<body>
<form action="/login/" method="post">
	<input name="user[username]" type="text">
	<input name="user[password]" type="password">
	<input type="submit" name="commit" value="Log in">
</form>
</body></html>`

const dashboardPage = `<!DOCTYPE html>
<html><head><meta name="csrf-token" content="user-token"></head>
<body><a href="/logout" data-method="delete">Log out</a></body></html>`

const assignmentsPage = `<!DOCTYPE html>
<html><head><meta name="csrf-token" content="user-token"></head>
<body>
<table class="table">
<thead><tr><th>Assignment</th><th>Due</th><th>Weight</th><th>Score</th></tr></thead>
<tbody>
<tr>
	<td><a href="/courses/126/assignments/901"><span>Homework 1</span></a></td>
	<td>Jan 10</td>
	<td class="text-right">10.0 %<br/>90.0</td>
</tr>
<tr>
	<td><a href="/courses/126/assignments/902">Homework  2</a></td>
	<td>Jan 17</td>
	<td class="text-right">20.0 %</td>
	<td class="text-right">80 <small>/ 100</small></td>
</tr>
<tr>
	<td><a href="/courses/126/assignments/903">Exam 1</a></td>
	<td>Feb 1</td>
	<td class="text-right">30.0 %</td>
</tr>
<tr>
	<td>Lecture notes</td>
</tr>
</tbody>
</table>
</body></html>`

type fakeHandins struct {
	*httptest.Server

	mutex       sync.Mutex
	assignments string
	loginPosts  int
	logouts     int
	lastForm    map[string]string
}

func newFakeHandins(t testing.TB) *fakeHandins {
	f := &fakeHandins{assignments: assignmentsPage}

	mux := http.NewServeMux()
	mux.HandleFunc("/login/", f.login)
	mux.HandleFunc("/logout", f.logout)
	mux.HandleFunc("/courses/126/assignments/", f.courseAssignments)
	mux.HandleFunc("/courses/500/assignments/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !f.loggedIn(r) {
			http.Redirect(w, r, "/login/", http.StatusFound)
			return
		}
		fmt.Fprint(w, dashboardPage)
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeHandins) loggedIn(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookie)
	return err == nil && cookie.Value == "valid"
}

func (f *fakeHandins) login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "anonymous", Path: "/"})
		fmt.Fprint(w, loginPage)
		return
	}

	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mutex.Lock()
	f.loginPosts++
	f.lastForm = map[string]string{}
	for key := range r.PostForm {
		f.lastForm[key] = r.PostForm.Get(key)
	}
	f.mutex.Unlock()

	if r.PostForm.Get("authenticity_token") != anonToken {
		http.Error(w, "invalid authenticity token", http.StatusUnprocessableEntity)
		return
	}
	if r.PostForm.Get("user[username]") != testUsername ||
		r.PostForm.Get("user[password]") != testPassword {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, loginPage)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "valid", Path: "/"})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (f *fakeHandins) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete || r.Header.Get("X-CSRF-Token") != userToken {
		http.Error(w, "bad logout", http.StatusUnprocessableEntity)
		return
	}
	f.mutex.Lock()
	f.logouts++
	f.mutex.Unlock()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeHandins) courseAssignments(w http.ResponseWriter, r *http.Request) {
	if !f.loggedIn(r) {
		http.Redirect(w, r, "/login/", http.StatusFound)
		return
	}
	f.mutex.Lock()
	page := f.assignments
	f.mutex.Unlock()
	fmt.Fprint(w, page)
}

func (f *fakeHandins) setAssignments(page string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.assignments = page
}
