package httppresentation

import (
	"net/http"

	appAuth "github.com/Zhima-Mochi/minishop-storefront/internal/application/auth"
)

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	form, cleanup, err := h.parseForm(w, r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	defer cleanup()

	avatars, err := uploadsFrom(form, "profileImage")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	defer closeUploads(avatars)

	in := appAuth.RegisterInput{
		Username:        form.value("username"),
		Email:           form.value("email"),
		Password:        form.value("password"),
		ConfirmPassword: form.value("confirmPassword"),
		Phone:           form.value("phone"),
	}
	session, err := h.svc.Auth.Register(r.Context(), in, avatars.first())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.setTokenCookie(w, session.Token)
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	session, err := h.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.setTokenCookie(w, session.Token)
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *Handler) setTokenCookie(w http.ResponseWriter, token string) {
	cookie := &http.Cookie{
		Name:     cookieJWT,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.opts.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.opts.CookieSecure {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, cookie)
}
