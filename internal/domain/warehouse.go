package domain

// Warehouse representa um armazém do servidor upstream.
// A consola só o lê para preencher o formulário de requisições e o gere no ecrã de administração.
type Warehouse struct {
	ID     int64  `json:"id"`
	Nome   string `json:"nome"`
	Codigo string `json:"codigo"`
}

// Supplier representa um fornecedor opcional de uma requisição.
type Supplier struct {
	ID       int64  `json:"id"`
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Telefone string `json:"telefone"`
	NIF      string `json:"nif"`
	Morada   string `json:"morada"`
}
