package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/muxarr/muxarr/internal/connections"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
)

// AccountHandler handles provider account and credential endpoints.
type AccountHandler struct {
	accounts    repository.AccountRepository
	credentials repository.CredentialRepository
	conns       *connections.Manager
}

// NewAccountHandler creates an account handler.
func NewAccountHandler(
	accounts repository.AccountRepository,
	credentials repository.CredentialRepository,
	conns *connections.Manager,
) *AccountHandler {
	return &AccountHandler{
		accounts:    accounts,
		credentials: credentials,
		conns:       conns,
	}
}

// Register registers the account routes with the API.
func (h *AccountHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listAccounts",
		Method:      "GET",
		Path:        "/api/v1/accounts",
		Summary:     "List accounts",
		Tags:        []string{"Accounts"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getAccount",
		Method:      "GET",
		Path:        "/api/v1/accounts/{id}",
		Summary:     "Get account",
		Tags:        []string{"Accounts"},
	}, h.GetByID)

	huma.Register(api, huma.Operation{
		OperationID: "createAccount",
		Method:      "POST",
		Path:        "/api/v1/accounts",
		Summary:     "Create account",
		Tags:        []string{"Accounts"},
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "updateAccount",
		Method:      "PUT",
		Path:        "/api/v1/accounts/{id}",
		Summary:     "Update account",
		Tags:        []string{"Accounts"},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID: "deleteAccount",
		Method:      "DELETE",
		Path:        "/api/v1/accounts/{id}",
		Summary:     "Delete account",
		Description: "Deletes an account and everything hanging off it",
		Tags:        []string{"Accounts"},
	}, h.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "getAccountConnections",
		Method:      "GET",
		Path:        "/api/v1/accounts/{id}/connections",
		Summary:     "Get live connection usage",
		Description: "Returns per-credential session counts from the authoritative session table",
		Tags:        []string{"Accounts"},
	}, h.Connections)

	huma.Register(api, huma.Operation{
		OperationID: "listCredentials",
		Method:      "GET",
		Path:        "/api/v1/accounts/{id}/credentials",
		Summary:     "List credentials",
		Tags:        []string{"Credentials"},
	}, h.ListCredentials)

	huma.Register(api, huma.Operation{
		OperationID: "createCredential",
		Method:      "POST",
		Path:        "/api/v1/accounts/{id}/credentials",
		Summary:     "Create credential",
		Tags:        []string{"Credentials"},
	}, h.CreateCredential)

	huma.Register(api, huma.Operation{
		OperationID: "updateCredential",
		Method:      "PUT",
		Path:        "/api/v1/credentials/{id}",
		Summary:     "Update credential",
		Tags:        []string{"Credentials"},
	}, h.UpdateCredential)

	huma.Register(api, huma.Operation{
		OperationID: "deleteCredential",
		Method:      "DELETE",
		Path:        "/api/v1/credentials/{id}",
		Summary:     "Delete credential",
		Tags:        []string{"Credentials"},
	}, h.DeleteCredential)
}

// ListAccountsInput is the input for listing accounts.
type ListAccountsInput struct{}

// ListAccountsOutput is the output for listing accounts.
type ListAccountsOutput struct {
	Body struct {
		Accounts []*models.Account `json:"accounts"`
	}
}

// List returns all accounts.
func (h *AccountHandler) List(ctx context.Context, _ *ListAccountsInput) (*ListAccountsOutput, error) {
	accounts, err := h.accounts.GetAll(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list accounts", err)
	}
	resp := &ListAccountsOutput{}
	resp.Body.Accounts = accounts
	return resp, nil
}

// GetAccountInput is the input for getting an account.
type GetAccountInput struct {
	ID string `path:"id" doc:"Account ID (ULID)"`
}

// GetAccountOutput is the output for getting an account.
type GetAccountOutput struct {
	Body *models.Account
}

// GetByID returns an account by ID.
func (h *AccountHandler) GetByID(ctx context.Context, input *GetAccountInput) (*GetAccountOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	account, err := h.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get account", err)
	}
	if account == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("account %s not found", input.ID))
	}
	return &GetAccountOutput{Body: account}, nil
}

// CreateAccountRequest is the payload for creating an account.
type CreateAccountRequest struct {
	Name      string `json:"name" doc:"Display name, unique across accounts"`
	Server    string `json:"server" doc:"Provider host including scheme"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Enabled   *bool  `json:"enabled,omitempty"`
}

// CreateAccountInput is the input for creating an account.
type CreateAccountInput struct {
	Body CreateAccountRequest
}

// CreateAccountOutput is the output for creating an account.
type CreateAccountOutput struct {
	Body *models.Account
}

// Create creates a new account.
func (h *AccountHandler) Create(ctx context.Context, input *CreateAccountInput) (*CreateAccountOutput, error) {
	account := &models.Account{
		Name:      input.Body.Name,
		Server:    input.Body.Server,
		Username:  input.Body.Username,
		Password:  input.Body.Password,
		UserAgent: input.Body.UserAgent,
		Enabled:   input.Body.Enabled,
	}
	if err := h.accounts.Create(ctx, account); err != nil {
		if isUniqueViolation(err) {
			return nil, huma.Error409Conflict("an account with this name already exists")
		}
		return nil, huma.Error400BadRequest("failed to create account", err)
	}
	return &CreateAccountOutput{Body: account}, nil
}

// UpdateAccountInput is the input for updating an account.
type UpdateAccountInput struct {
	ID   string `path:"id" doc:"Account ID (ULID)"`
	Body CreateAccountRequest
}

// UpdateAccountOutput is the output for updating an account.
type UpdateAccountOutput struct {
	Body *models.Account
}

// Update updates an existing account. An empty password keeps the
// stored one.
func (h *AccountHandler) Update(ctx context.Context, input *UpdateAccountInput) (*UpdateAccountOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	account, err := h.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get account", err)
	}
	if account == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("account %s not found", input.ID))
	}

	account.Name = input.Body.Name
	account.Server = input.Body.Server
	account.Username = input.Body.Username
	if input.Body.Password != "" {
		account.Password = input.Body.Password
	}
	account.UserAgent = input.Body.UserAgent
	if input.Body.Enabled != nil {
		account.Enabled = input.Body.Enabled
	}

	if err := h.accounts.Update(ctx, account); err != nil {
		if isUniqueViolation(err) {
			return nil, huma.Error409Conflict("an account with this name already exists")
		}
		return nil, huma.Error400BadRequest("failed to update account", err)
	}
	return &UpdateAccountOutput{Body: account}, nil
}

// DeleteAccountInput is the input for deleting an account.
type DeleteAccountInput struct {
	ID string `path:"id" doc:"Account ID (ULID)"`
}

// DeleteAccountOutput is the output for deleting an account.
type DeleteAccountOutput struct{}

// Delete deletes an account.
func (h *AccountHandler) Delete(ctx context.Context, input *DeleteAccountInput) (*DeleteAccountOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.accounts.Delete(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete account", err)
	}
	return &DeleteAccountOutput{}, nil
}

// AccountConnectionsInput is the input for the connection status endpoint.
type AccountConnectionsInput struct {
	ID string `path:"id" doc:"Account ID (ULID)"`
}

// AccountConnectionsOutput is the output for the connection status endpoint.
type AccountConnectionsOutput struct {
	Body *connections.ConnectionStatus
}

// Connections reports live per-credential session usage.
func (h *AccountHandler) Connections(ctx context.Context, input *AccountConnectionsInput) (*AccountConnectionsOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	status, err := h.conns.GetConnectionStatus(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get connection status", err)
	}
	return &AccountConnectionsOutput{Body: status}, nil
}

// ListCredentialsInput is the input for listing credentials.
type ListCredentialsInput struct {
	ID string `path:"id" doc:"Account ID (ULID)"`
}

// ListCredentialsOutput is the output for listing credentials.
type ListCredentialsOutput struct {
	Body struct {
		Credentials []*models.Credential `json:"credentials"`
	}
}

// ListCredentials returns all credentials for an account.
func (h *AccountHandler) ListCredentials(ctx context.Context, input *ListCredentialsInput) (*ListCredentialsOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	creds, err := h.credentials.GetByAccount(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list credentials", err)
	}
	resp := &ListCredentialsOutput{}
	resp.Body.Credentials = creds
	return resp, nil
}

// CredentialRequest is the payload for creating or updating a credential.
type CredentialRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password,omitempty"`
	MaxConnections int    `json:"max_connections,omitempty" doc:"Provider-reported connection cap"`
	Enabled        *bool  `json:"enabled,omitempty"`
}

// CreateCredentialInput is the input for creating a credential.
type CreateCredentialInput struct {
	ID   string `path:"id" doc:"Account ID (ULID)"`
	Body CredentialRequest
}

// CreateCredentialOutput is the output for creating a credential.
type CreateCredentialOutput struct {
	Body *models.Credential
}

// CreateCredential adds a credential to an account.
func (h *AccountHandler) CreateCredential(ctx context.Context, input *CreateCredentialInput) (*CreateCredentialOutput, error) {
	accountID, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	maxConns := input.Body.MaxConnections
	if maxConns < 1 {
		maxConns = 1
	}
	cred := &models.Credential{
		AccountID:      accountID,
		Username:       input.Body.Username,
		Password:       input.Body.Password,
		MaxConnections: maxConns,
		Enabled:        input.Body.Enabled,
	}
	if err := h.credentials.Create(ctx, cred); err != nil {
		if isUniqueViolation(err) {
			return nil, huma.Error409Conflict("this username already exists on the account")
		}
		return nil, huma.Error400BadRequest("failed to create credential", err)
	}
	return &CreateCredentialOutput{Body: cred}, nil
}

// UpdateCredentialInput is the input for updating a credential.
type UpdateCredentialInput struct {
	ID   string `path:"id" doc:"Credential ID (ULID)"`
	Body CredentialRequest
}

// UpdateCredentialOutput is the output for updating a credential.
type UpdateCredentialOutput struct {
	Body *models.Credential
}

// UpdateCredential updates a credential. An empty password keeps the
// stored one.
func (h *AccountHandler) UpdateCredential(ctx context.Context, input *UpdateCredentialInput) (*UpdateCredentialOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	cred, err := h.credentials.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get credential", err)
	}
	if cred == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("credential %s not found", input.ID))
	}

	cred.Username = input.Body.Username
	if input.Body.Password != "" {
		cred.Password = input.Body.Password
	}
	if input.Body.MaxConnections > 0 {
		cred.MaxConnections = input.Body.MaxConnections
	}
	if input.Body.Enabled != nil {
		cred.Enabled = input.Body.Enabled
	}

	if err := h.credentials.Update(ctx, cred); err != nil {
		return nil, huma.Error400BadRequest("failed to update credential", err)
	}
	return &UpdateCredentialOutput{Body: cred}, nil
}

// DeleteCredentialInput is the input for deleting a credential.
type DeleteCredentialInput struct {
	ID string `path:"id" doc:"Credential ID (ULID)"`
}

// DeleteCredentialOutput is the output for deleting a credential.
type DeleteCredentialOutput struct{}

// DeleteCredential deletes a credential.
func (h *AccountHandler) DeleteCredential(ctx context.Context, input *DeleteCredentialInput) (*DeleteCredentialOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid ID format", err)
	}
	if err := h.credentials.Delete(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete credential", err)
	}
	return &DeleteCredentialOutput{}, nil
}

// isUniqueViolation sniffs driver-specific unique constraint errors.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key")
}
