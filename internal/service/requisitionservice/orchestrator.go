package requisitionservice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"drive360/internal/domain"
	apperror "drive360/internal/errors"
	"drive360/internal/pkg/logger"
)

// RequisitionRepository define o contrato que o orquestrador espera do servidor REST.
type RequisitionRepository interface {
	List(ctx context.Context, token string) ([]domain.Requisition, error)
	Get(ctx context.Context, token string, id int64) (domain.Requisition, error)
	Create(ctx context.Context, token string, payload map[string]any) (domain.Requisition, error)
	Update(ctx context.Context, token string, id int64, payload map[string]any) (domain.Requisition, error)
	Delete(ctx context.Context, token string, id int64) error
}

// ReferenceRepository fornece os dados de referência dos selects do formulário.
type ReferenceRepository interface {
	Warehouses(ctx context.Context, token string) ([]domain.Warehouse, error)
	Suppliers(ctx context.Context, token string) ([]domain.Supplier, error)
}

// View é o ecrã atual do orquestrador.
type View int

const (
	ViewListing View = iota
	ViewEditing
	ViewCreating
)

func (v View) String() string {
	switch v {
	case ViewEditing:
		return "editing"
	case ViewCreating:
		return "creating"
	default:
		return "listing"
	}
}

var (
	// ErrSaveInFlight é devolvido quando já há uma gravação em curso.
	ErrSaveInFlight = apperror.NewConflictError("já existe uma gravação em curso.")
	// ErrDeleteInFlight é devolvido quando a mesma requisição já está a ser excluída.
	ErrDeleteInFlight = apperror.NewConflictError("a requisição já está a ser excluída.")
	// ErrNotAdmin marca uma ação suprimida por papel. Não é mostrado ao utilizador.
	ErrNotAdmin = errors.New("ação reservada a administradores")
	// ErrWrongView é devolvido quando a ação não corresponde ao ecrã atual.
	ErrWrongView = apperror.NewConflictError("a ação não corresponde ao ecrã atual.")
	// ErrStale indica que o resultado chegou depois de o ecrã ter mudado e foi descartado.
	ErrStale = errors.New("resultado descartado: o ecrã mudou")
)

// NoticeKind distingue notificações de sucesso e de erro.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice é uma notificação transitória mostrada uma única vez.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Snapshot é uma cópia do estado do orquestrador para apresentar.
type Snapshot struct {
	View         View
	Form         *FormState
	Editing      *domain.Requisition
	RefreshToken uint64
	Saving       bool
}

// References são os dados de referência do formulário.
type References struct {
	Warehouses []domain.Warehouse
	Suppliers  []domain.Supplier
}

// Orchestrator coordena a lista e o formulário de requisições de uma sessão.
// O estado é protegido por mu; as chamadas de rede são feitas sem o lock e o
// resultado só é aplicado se o ecrã (viewID) não tiver mudado entretanto.
type Orchestrator struct {
	repo   RequisitionRepository
	refs   ReferenceRepository
	logger logger.Logger

	mu           sync.Mutex
	view         View
	viewID       uint64
	form         *FormState
	editing      *domain.Requisition
	refreshToken uint64

	list       []domain.Requisition
	listLoaded bool
	listToken  uint64
	mounted    bool

	saving   bool
	deleting map[int64]bool
	notices  []Notice
}

// NewOrchestrator cria o orquestrador no ecrã de listagem.
func NewOrchestrator(repo RequisitionRepository, refs ReferenceRepository, logger logger.Logger) *Orchestrator {
	return &Orchestrator{
		repo:     repo,
		refs:     refs,
		logger:   logger,
		deleting: make(map[int64]bool),
		mounted:  true,
	}
}

// Mount corresponde a uma navegação nova para a lista: volta à listagem,
// abandona o formulário e força uma nova leitura.
func (o *Orchestrator) Mount() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.toListing()
	o.mounted = true
}

// List devolve a lista, lendo do servidor só quando o refreshToken mudou desde
// a última leitura ou o ecrã foi montado. Em falha devolve a última lista conhecida.
func (o *Orchestrator) List(ctx context.Context, s domain.Session) ([]domain.Requisition, error) {
	o.mu.Lock()
	if o.listLoaded && !o.mounted && o.listToken == o.refreshToken {
		out := o.cachedList()
		o.mu.Unlock()
		return out, nil
	}
	token, vid := o.refreshToken, o.viewID
	o.mu.Unlock()

	list, err := o.repo.List(ctx, s.Token)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.logger.Warn("Falha ao carregar requisições.", map[string]interface{}{"error": err.Error()})
		o.notify(NoticeError, "Erro ao carregar requisições.")
		return o.cachedList(), err
	}
	if vid != o.viewID {
		o.logger.Debug("Lista descartada: ecrã mudou durante a leitura.", nil)
		return o.cachedList(), nil
	}
	o.list = list
	o.listLoaded = true
	o.listToken = token
	o.mounted = false
	return o.cachedList(), nil
}

// RequestEdit abre o formulário de edição de uma requisição. Só administradores;
// para outros papéis a transição é suprimida (ErrNotAdmin) e a lista mantém-se.
func (o *Orchestrator) RequestEdit(ctx context.Context, s domain.Session, id int64) error {
	if !s.IsAdmin() {
		return ErrNotAdmin
	}

	o.mu.Lock()
	if o.view == ViewEditing && o.editing != nil && o.editing.ID == id {
		o.mu.Unlock()
		return nil
	}
	vid := o.viewID
	o.mu.Unlock()

	r, err := o.repo.Get(ctx, s.Token, id)

	o.mu.Lock()
	defer o.mu.Unlock()
	// Um 401 termina a sessão mesmo que o ecrã já tenha mudado.
	if apperror.IsUnauthorized(err) {
		return err
	}
	if vid != o.viewID {
		return ErrStale
	}
	if err != nil {
		o.logger.Warn("Falha ao carregar requisição para edição.", map[string]interface{}{"id": id, "error": err.Error()})
		o.notify(NoticeError, "Erro ao carregar requisição.")
		return err
	}

	o.viewID++
	o.view = ViewEditing
	o.editing = &r
	o.form = FormFrom(r)
	return nil
}

// BeginCreate abre o ecrã de criação com um formulário novo.
func (o *Orchestrator) BeginCreate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.view == ViewCreating {
		return
	}
	o.viewID++
	o.view = ViewCreating
	o.editing = nil
	o.form = NewForm()
}

// UpdateForm aplica valores ao formulário sem submeter (por exemplo, troca de categoria).
func (o *Orchestrator) UpdateForm(values map[string]string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.form == nil || o.view == ViewListing {
		return ErrWrongView
	}
	o.form.Apply(values)
	return nil
}

// Cancel volta à listagem sem nova leitura.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.view != ViewListing {
		o.toListing()
	}
}

// Save submete a edição. Sucesso volta à listagem e incrementa o refreshToken;
// falha mantém o formulário aberto com uma notificação de erro.
func (o *Orchestrator) Save(ctx context.Context, s domain.Session, values map[string]string) error {
	if !s.IsAdmin() {
		return ErrNotAdmin
	}
	return o.submit(ctx, s, ViewEditing, values)
}

// Create submete o formulário de criação. O pedido não leva campos opcionais vazios.
func (o *Orchestrator) Create(ctx context.Context, s domain.Session, values map[string]string) error {
	return o.submit(ctx, s, ViewCreating, values)
}

func (o *Orchestrator) submit(ctx context.Context, s domain.Session, want View, values map[string]string) error {
	o.mu.Lock()
	if o.view != want || o.form == nil {
		o.mu.Unlock()
		return ErrWrongView
	}
	if o.saving {
		o.mu.Unlock()
		return ErrSaveInFlight
	}

	o.form.Apply(values)
	r, err := o.form.Build()
	if err != nil {
		o.mu.Unlock()
		return err
	}
	o.saving = true
	vid := o.viewID
	o.mu.Unlock()

	// Sem lock durante a chamada de rede.
	var callErr error
	if want == ViewCreating {
		_, callErr = o.repo.Create(ctx, s.Token, r.Payload(true))
	} else {
		_, callErr = o.repo.Update(ctx, s.Token, r.ID, r.Payload(false))
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.saving = false

	action := "atualizar"
	if want == ViewCreating {
		action = "criar"
	}
	if callErr != nil {
		o.logger.Warn("Falha ao gravar requisição.", map[string]interface{}{"action": action, "error": callErr.Error()})
		if vid == o.viewID {
			o.notify(NoticeError, fmt.Sprintf("Erro ao %s requisição: %s", action, userMessage(callErr)))
		}
		return callErr
	}

	// Os dados do servidor mudaram mesmo que o ecrã já não seja o mesmo.
	o.refreshToken++
	if vid != o.viewID {
		o.logger.Debug("Resultado da gravação chegou depois de o ecrã mudar.", nil)
		return ErrStale
	}
	o.toListing()
	if want == ViewCreating {
		o.notify(NoticeSuccess, "Requisição criada com sucesso.")
	} else {
		o.notify(NoticeSuccess, "Requisição atualizada com sucesso.")
	}
	o.logger.Info("Requisição gravada.", map[string]interface{}{"action": action, "refresh_token": o.refreshToken})
	return nil
}

// Delete exclui uma requisição (só administradores). Sucesso incrementa o
// refreshToken; falha deixa a lista intacta e gera uma notificação.
func (o *Orchestrator) Delete(ctx context.Context, s domain.Session, id int64) error {
	if !s.IsAdmin() {
		return ErrNotAdmin
	}

	o.mu.Lock()
	if o.deleting[id] {
		o.mu.Unlock()
		return ErrDeleteInFlight
	}
	o.deleting[id] = true
	vid := o.viewID
	o.mu.Unlock()

	err := o.repo.Delete(ctx, s.Token, id)

	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.deleting, id)
	if err != nil {
		o.logger.Warn("Falha ao excluir requisição.", map[string]interface{}{"id": id, "error": err.Error()})
		if vid == o.viewID {
			o.notify(NoticeError, "Erro ao excluir requisição.")
		}
		return err
	}

	o.refreshToken++
	if vid == o.viewID {
		o.notify(NoticeSuccess, "Requisição excluída com sucesso.")
	}
	o.logger.Info("Requisição excluída.", map[string]interface{}{"id": id, "refresh_token": o.refreshToken})
	return nil
}

// Details devolve uma requisição para o ecrã de detalhes, usando a lista em cache quando possível.
func (o *Orchestrator) Details(ctx context.Context, s domain.Session, id int64) (domain.Requisition, error) {
	o.mu.Lock()
	if o.listLoaded && o.listToken == o.refreshToken {
		for _, r := range o.list {
			if r.ID == id {
				o.mu.Unlock()
				return r, nil
			}
		}
	}
	o.mu.Unlock()

	r, err := o.repo.Get(ctx, s.Token, id)
	if err != nil {
		o.mu.Lock()
		o.notify(NoticeError, "Erro ao carregar requisição.")
		o.mu.Unlock()
		return domain.Requisition{}, err
	}
	return r, nil
}

// LoadReferences lê armazéns e fornecedores em paralelo. Cada falha gera a sua
// própria notificação; o erro devolvido é o primeiro 401, se houver.
func (o *Orchestrator) LoadReferences(ctx context.Context, s domain.Session) (References, error) {
	var (
		wg                    sync.WaitGroup
		refs                  References
		warehouseErr, suppErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		refs.Warehouses, warehouseErr = o.refs.Warehouses(ctx, s.Token)
	}()
	go func() {
		defer wg.Done()
		refs.Suppliers, suppErr = o.refs.Suppliers(ctx, s.Token)
	}()
	wg.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	if warehouseErr != nil {
		o.notify(NoticeError, "Erro ao carregar armazéns.")
	}
	if suppErr != nil {
		o.notify(NoticeError, "Erro ao carregar fornecedores.")
	}
	for _, err := range []error{warehouseErr, suppErr} {
		if apperror.IsUnauthorized(err) {
			return refs, err
		}
	}
	return refs, nil
}

// Snapshot devolve uma cópia do estado atual.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{
		View:         o.view,
		Form:         o.form.Clone(),
		RefreshToken: o.refreshToken,
		Saving:       o.saving,
	}
	if o.editing != nil {
		r := *o.editing
		snap.Editing = &r
	}
	return snap
}

// RefreshToken devolve a versão atual dos dados.
func (o *Orchestrator) RefreshToken() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refreshToken
}

// DrainNotices devolve as notificações pendentes e esvazia a fila.
func (o *Orchestrator) DrainNotices() []Notice {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.notices
	o.notices = nil
	return out
}

// Notify acrescenta uma notificação vinda de fora do orquestrador.
func (o *Orchestrator) Notify(kind NoticeKind, text string) {
	o.mu.Lock()
	o.notify(kind, text)
	o.mu.Unlock()
}

func (o *Orchestrator) notify(kind NoticeKind, text string) {
	o.notices = append(o.notices, Notice{Kind: kind, Text: text})
}

// toListing deve ser chamado com mu.
func (o *Orchestrator) toListing() {
	o.viewID++
	o.view = ViewListing
	o.form = nil
	o.editing = nil
}

func (o *Orchestrator) cachedList() []domain.Requisition {
	out := make([]domain.Requisition, len(o.list))
	copy(out, o.list)
	return out
}

// userMessage extrai a mensagem do servidor de um erro, sem prefixos internos.
func userMessage(err error) string {
	var upstream *apperror.UpstreamError
	if errors.As(err, &upstream) && upstream.Msg != "" {
		return upstream.Msg
	}
	return "tente novamente."
}
