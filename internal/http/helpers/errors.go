package helpers

import (
	"encoding/json"
	"net/http"
)

// errorBody es el contrato de error que consume el front-end. El shape es
// fijo: status numérico, el texto estándar del status, un mensaje legible
// y el path del request que falló.
type errorBody struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// WriteError escribe una respuesta de error con el shape estándar.
func WriteError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Status:  status,
		Error:   http.StatusText(status),
		Message: message,
		Path:    r.URL.Path,
	})
}

// WriteUnauthorized es la respuesta del gateway ante un request sin
// identidad establecida en una ruta protegida.
func WriteUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "se requiere autenticación"
	}
	WriteError(w, r, http.StatusUnauthorized, message)
}

// WriteForbidden responde cuando hay identidad pero el rol no alcanza.
func WriteForbidden(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "permisos insuficientes"
	}
	WriteError(w, r, http.StatusForbidden, message)
}
