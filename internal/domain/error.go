package domain

// ErrorResponse é o corpo de erro devolvido pelo servidor upstream.
// Alguns endpoints usam "error", outros "message".
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Text devolve a primeira mensagem não vazia.
func (e ErrorResponse) Text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}
