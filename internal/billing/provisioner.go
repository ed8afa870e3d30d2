package billing

import (
	"crypto/rand"
	"fmt"
	"log/slog"

	"github.com/supabase-community/gotrue-go/types"
)

// adminAPI is the slice of the GoTrue admin client the provisioner
// needs. The supabase client's Auth field satisfies it.
type adminAPI interface {
	AdminCreateUser(req types.AdminCreateUserRequest) (*types.AdminCreateUserResponse, error)
}

// Provisioner creates auth accounts for approved purchases.
type Provisioner struct {
	admin  adminAPI
	logger *slog.Logger
}

func NewProvisioner(admin adminAPI, logger *slog.Logger) *Provisioner {
	return &Provisioner{admin: admin, logger: logger}
}

// ProvisionedAccount carries the freshly created credentials so the
// welcome email can include them.
type ProvisionedAccount struct {
	UserID   string
	Email    string
	Password string
}

// CreateAccount creates a confirmed auth user for a buyer. The
// generated password is returned once and never stored.
func (p *Provisioner) CreateAccount(email, name, transactionID, planType string) (*ProvisionedAccount, error) {
	password, err := generatePassword(12)
	if err != nil {
		return nil, fmt.Errorf("generating password: %w", err)
	}

	resp, err := p.admin.AdminCreateUser(types.AdminCreateUserRequest{
		Email:        email,
		Password:     &password,
		EmailConfirm: true,
		UserMetadata: map[string]interface{}{
			"name":           name,
			"source":         "hotmart",
			"transaction_id": transactionID,
			"plan_type":      planType,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating auth user: %w", err)
	}

	p.logger.Info("account provisioned",
		"email", email,
		"transaction_id", transactionID,
		"plan_type", planType)

	return &ProvisionedAccount{
		UserID:   resp.ID.String(),
		Email:    email,
		Password: password,
	}, nil
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generatePassword(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = passwordAlphabet[int(b)%len(passwordAlphabet)]
	}
	return string(buf), nil
}
