package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"rera-gateway/internal/domain/account"
)

// Тело запроса ограничено, все поля в нём короткие строки.
const maxBodyBytes = 64 << 10

type authStartRequest struct {
	Phone *string `json:"phone"`
}

type authStartResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	CodeSent bool   `json:"code_sent"`
}

type authVerifyRequest struct {
	Phone    *string `json:"phone"`
	Code     *string `json:"code"`
	Password *string `json:"password"`
}

type authVerifyResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Requires2FA bool   `json:"requires_2fa,omitempty"`
}

type lookupRequest struct {
	RERANumber *string `json:"rera_number"`
}

type lookupResponse struct {
	Success    bool   `json:"success"`
	RERANumber string `json:"rera_number"`
	Response   string `json:"response"`
}

type sessionStatusResponse struct {
	Authenticated bool    `json:"authenticated"`
	Phone         *string `json:"phone"`
}

type simpleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleHealth проверка здоровья сервера
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSessionStatus сообщает, авторизован ли аккаунт. Никогда не падает.
func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	st := s.service.Status(r.Context())

	resp := sessionStatusResponse{Authenticated: st.Authenticated}
	if st.Authenticated && st.Phone != "" {
		phone := st.Phone
		resp.Phone = &phone
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAuthStart запрашивает код подтверждения.
func (s *Server) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	var req authStartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Phone == nil {
		writeError(w, http.StatusUnprocessableEntity, "Field required: phone")
		return
	}

	res, err := s.service.RequestCode(r.Context(), *req.Phone)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authStartResponse{
		Success:  true,
		Message:  res.Message,
		CodeSent: res.CodeSent,
	})
}

// handleAuthVerify завершает вход кодом и, при необходимости, паролем 2FA.
func (s *Server) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	var req authVerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var missing []string
	if req.Phone == nil {
		missing = append(missing, "phone")
	}
	if req.Code == nil {
		missing = append(missing, "code")
	}
	if len(missing) > 0 {
		writeError(w, http.StatusUnprocessableEntity, "Field required: "+strings.Join(missing, ", "))
		return
	}

	password := ""
	if req.Password != nil {
		password = *req.Password
	}

	res, err := s.service.VerifyCode(r.Context(), *req.Phone, *req.Code, password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if res.RequiresPassword {
		writeJSON(w, http.StatusOK, authVerifyResponse{
			Success:     false,
			Message:     res.Message,
			Requires2FA: true,
		})
		return
	}
	writeJSON(w, http.StatusOK, authVerifyResponse{Success: true, Message: res.Message})
}

// handleLookup пересылает номер боту и возвращает его ответ.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RERANumber == nil {
		writeError(w, http.StatusUnprocessableEntity, "Field required: rera_number")
		return
	}

	res, err := s.service.Lookup(r.Context(), *req.RERANumber)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{
		Success:    true,
		RERANumber: res.Query,
		Response:   res.Response,
	})
}

// handleLogout завершает сессию и удаляет сохранённые учётные данные.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Logout(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, simpleResponse{Success: true, Message: account.MsgLoggedOut})
}

// decodeBody разбирает JSON-тело; при ошибке отвечает 422 и возвращает false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}
