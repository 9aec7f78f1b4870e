package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"hopper/internal/theme"
	"hopper/internal/views/layout"
	"hopper/internal/views/markup"
)

// LoginForm is the state echoed back into the sign-in form.
type LoginForm struct {
	Identifier string
	RememberMe bool
	Message    string
}

// RegisterForm is the state echoed back into the registration form. Passwords are never echoed.
type RegisterForm struct {
	Username   string
	Email      string
	RememberMe bool
	Message    string
}

// Login renders the full sign-in page.
func Login(form LoginForm, palette theme.Palette) templ.Component {
	return layout.Layout("Sign in · Hopper", palette, centered(LoginPartial(form, palette)))
}

// LoginPartial renders only the sign-in card, for htmx swaps.
func LoginPartial(form LoginForm, palette theme.Palette) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := markup.New(w)
		openCard(m, palette, "max-w-md")
		m.Raw(`<h1 class="text-2xl font-semibold">Sign in to Hopper</h1>`)
		m.Raw(`<form method="post" action="/login" hx-post="/login" hx-target="#auth-card" hx-swap="outerHTML" class="mt-8 space-y-5">`)
		field(m, "usernameOrEmail", "Username or email", "text", form.Identifier, "garrett@hopper.app", "username")
		field(m, "password", "Password", "password", "", "••••••••", "current-password")
		rememberMe(m, form.RememberMe, "/register", "Create an account")
		alert(m, form.Message)
		m.Raw(`<button type="submit" class="w-full rounded-xl bg-indigo-600 px-4 py-2 font-medium text-white">Sign in</button></form>`)
		m.Raw("<p").Attr("class", markup.Classes("mt-8 text-center text-sm", palette.MutedTextClass)).Raw(">")
		m.Raw(`New to Hopper? <a href="/register" class="font-semibold text-indigo-500">Create an account</a></p></div>`)
		return m.Err()
	})
}

// Register renders the full registration page.
func Register(form RegisterForm, palette theme.Palette) templ.Component {
	return layout.Layout("Create account · Hopper", palette, centered(RegisterPartial(form, palette)))
}

// RegisterPartial renders only the registration card, for htmx swaps.
func RegisterPartial(form RegisterForm, palette theme.Palette) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := markup.New(w)
		openCard(m, palette, "max-w-xl")
		m.Raw(`<h1 class="text-2xl font-semibold">Create your account</h1>`)
		m.Raw(`<form method="post" action="/register" hx-post="/register" hx-target="#auth-card" hx-swap="outerHTML" class="mt-8 space-y-5">`)
		field(m, "username", "Username", "text", form.Username, "garrett", "username")
		field(m, "email", "Email", "email", form.Email, "garrett@hopper.app", "email")
		m.Raw(`<div class="grid gap-5 lg:grid-cols-2">`)
		field(m, "password", "Password", "password", "", "At least 8 characters", "new-password")
		field(m, "confirm_password", "Confirm password", "password", "", "Re-enter password", "new-password")
		m.Raw("</div>")
		rememberMe(m, form.RememberMe, "/login", "Back to sign in")
		alert(m, form.Message)
		m.Raw(`<button type="submit" class="w-full rounded-xl bg-indigo-600 px-4 py-2 font-medium text-white">Create account</button></form>`)
		m.Raw("<p").Attr("class", markup.Classes("mt-8 text-center text-sm", palette.MutedTextClass)).Raw(">")
		m.Raw(`Already have an account? <a href="/login" class="font-semibold text-indigo-500">Sign in instead</a></p></div>`)
		return m.Err()
	})
}

func centered(body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := markup.New(w)
		m.Raw(`<div class="flex min-h-screen w-full items-center justify-center px-4 py-10">`)
		m.Render(ctx, body).Raw("</div>")
		return m.Err()
	})
}

func openCard(m *markup.Writer, palette theme.Palette, width string) {
	m.Raw(`<div id="auth-card"`).Attr("class", markup.Classes("w-full rounded-3xl border px-8 py-10 shadow-2xl", width, palette.BorderClass, palette.PanelSurfaceClass)).Raw(">")
}

func field(m *markup.Writer, name, label, kind, value, placeholder, autocomplete string) {
	m.Raw(`<div class="space-y-2"><label class="text-sm font-medium"`).Attr("for", name).Raw(">").Text(label).Raw("</label>")
	m.Raw(`<input class="w-full rounded-xl border px-4 py-2" required`).
		Attr("id", name).Attr("name", name).Attr("type", kind).Attr("value", value).
		Attr("placeholder", placeholder).Attr("autocomplete", autocomplete).Raw("></div>")
}

func rememberMe(m *markup.Writer, checked bool, href, label string) {
	m.Raw(`<div class="flex items-center justify-between text-sm"><label class="inline-flex items-center gap-2">`)
	m.Raw(`<input type="checkbox" name="rememberMe" value="true" class="h-4 w-4 rounded"`).Flag("checked", checked).Raw(">")
	m.Raw("<span>Keep me signed in</span></label>")
	m.Raw(`<a class="font-medium text-indigo-500"`).Attr("href", href).Raw(">").Text(label).Raw("</a></div>")
}

func alert(m *markup.Writer, message string) {
	if message == "" {
		return
	}
	m.Raw(`<div class="rounded-xl bg-red-500/10 px-4 py-3 text-sm text-red-500" role="alert">`).Text(message).Raw("</div>")
}
