package security

import (
	"context"
	"fmt"

	"github.com/go-ldap/ldap/v3"

	"warden/internal/domain"
)

// DirectoryConfig holds the LDAP/Active Directory connection settings.
type DirectoryConfig struct {
	URL          string `yaml:"url"`
	BindDN       string `yaml:"bind_dn"`
	BindPassword string `yaml:"bind_password"`
	UserBaseDN   string `yaml:"user_base_dn"`
	// UserAttr is the attribute the login claim is matched against,
	// typically sAMAccountName or uid.
	UserAttr string `yaml:"user_attr"`
	// IDAttr is the attribute used as the stable user ID, typically
	// objectGUID or entryUUID.
	IDAttr string `yaml:"id_attr"`
	// GroupAttr is the membership attribute on the user entry, typically
	// memberOf. Its values are used directly as ACG identifiers.
	GroupAttr string `yaml:"group_attr"`
}

// DirectoryBackend is the identity backend over an enterprise directory.
// Every call opens a short-lived connection; directory servers are built for
// that and it avoids keeping a long-lived bind alive.
type DirectoryBackend struct {
	cfg DirectoryConfig
}

func NewDirectoryBackend(cfg DirectoryConfig) *DirectoryBackend {
	if cfg.UserAttr == "" {
		cfg.UserAttr = "sAMAccountName"
	}
	if cfg.IDAttr == "" {
		cfg.IDAttr = "objectGUID"
	}
	if cfg.GroupAttr == "" {
		cfg.GroupAttr = "memberOf"
	}
	return &DirectoryBackend{cfg: cfg}
}

// Authenticate binds as the user resolved from the claim. A failed bind or a
// claim matching no entry is a clean (false, nil).
func (b *DirectoryBackend) Authenticate(ctx context.Context, name, secret string) (bool, error) {
	if secret == "" {
		// An empty password would be an unauthenticated LDAP bind, which
		// most servers accept as anonymous.
		return false, nil
	}

	conn, err := b.dial()
	if err != nil {
		return false, err
	}
	defer conn.Close()

	entry, err := b.findEntry(conn, b.cfg.UserAttr, name)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}

	if err := conn.Bind(entry.DN, secret); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return false, nil
		}
		return false, fmt.Errorf("directory bind: %w", err)
	}
	return true, nil
}

func (b *DirectoryBackend) FindByName(ctx context.Context, name string) (*domain.User, error) {
	return b.findUser(b.cfg.UserAttr, name)
}

func (b *DirectoryBackend) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return b.findUser(b.cfg.IDAttr, id)
}

// DeleteUser is unsupported: directory accounts are managed in the directory.
func (b *DirectoryBackend) DeleteUser(ctx context.Context, id string) error {
	return domain.ErrValidation("directory-backed users are managed in the directory")
}

func (b *DirectoryBackend) GroupsForUser(ctx context.Context, id string) ([]string, error) {
	u, err := b.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.ACGs, nil
}

func (b *DirectoryBackend) findUser(attr, value string) (*domain.User, error) {
	conn, err := b.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	entry, err := b.findEntry(conn, attr, value)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrNotFound("user %s not found in directory", value)
	}
	return b.userFromEntry(entry), nil
}

func (b *DirectoryBackend) findEntry(conn *ldap.Conn, attr, value string) (*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		b.cfg.UserBaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 2, 0, false,
		fmt.Sprintf("(%s=%s)", attr, ldap.EscapeFilter(value)),
		[]string{b.cfg.UserAttr, b.cfg.IDAttr, b.cfg.GroupAttr},
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("directory search: %w", err)
	}
	switch len(res.Entries) {
	case 0:
		return nil, nil
	case 1:
		return res.Entries[0], nil
	default:
		return nil, fmt.Errorf("directory search for %s=%s is ambiguous", attr, value)
	}
}

func (b *DirectoryBackend) userFromEntry(entry *ldap.Entry) *domain.User {
	acgs := entry.GetAttributeValues(b.cfg.GroupAttr)
	if acgs == nil {
		acgs = []string{}
	}
	return &domain.User{
		ID:   entry.GetAttributeValue(b.cfg.IDAttr),
		Name: entry.GetAttributeValue(b.cfg.UserAttr),
		ACGs: acgs,
	}
}

func (b *DirectoryBackend) dial() (*ldap.Conn, error) {
	conn, err := ldap.DialURL(b.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("directory dial: %w", err)
	}
	if b.cfg.BindDN != "" {
		if err := conn.Bind(b.cfg.BindDN, b.cfg.BindPassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("directory service bind: %w", err)
		}
	}
	return conn, nil
}
