package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	authorizer "github.com/localnerve/authorizer-go"
	"github.com/localnerve/botdesk/internal/config"
	"github.com/localnerve/botdesk/internal/utils"
)

// ErrInvalidSession is returned when the provider rejects a session cookie
var ErrInvalidSession = errors.New("session is not valid")

// SessionValidator turns a session cookie into the signed-in identity. origin is the
// scheme and host of the inbound request.
type SessionValidator interface {
	ValidateSession(origin, cookie string, roles []string) (Identity, error)
}

// AuthorizerValidator validates sessions against an Authorizer instance. The client
// is created on the first request since Authorizer needs the public redirect origin.
type AuthorizerValidator struct {
	cfg *config.Config

	once    sync.Once
	client  *authorizer.AuthorizerClient
	initErr error
}

// NewAuthorizerValidator creates an AuthorizerValidator
func NewAuthorizerValidator(cfg *config.Config) *AuthorizerValidator {
	return &AuthorizerValidator{cfg: cfg}
}

// Initialized returns true if the Authorizer client is initialized
func (v *AuthorizerValidator) Initialized() bool {
	return v.client != nil
}

func (v *AuthorizerValidator) init(origin string) error {
	v.once.Do(func() {
		// Ping the Authorizer service first
		if err := utils.PingAuthorizer(v.cfg.AuthzURL); err != nil {
			v.initErr = fmt.Errorf("authorizer ping failed: %w", err)
			return
		}

		log.Printf("Initializing Authorizer: authorizerURL=%s, clientID=%s, redirectURL=%s",
			v.cfg.AuthzURL, v.cfg.AuthzClientID, origin)

		client, err := authorizer.NewAuthorizerClient(v.cfg.AuthzClientID, v.cfg.AuthzURL, origin, nil)
		if err != nil {
			v.initErr = fmt.Errorf("failed to create authorizer client: %w", err)
			return
		}
		v.client = client
	})
	return v.initErr
}

// ValidateSession validates a session cookie for the given roles
func (v *AuthorizerValidator) ValidateSession(origin, cookie string, roles []string) (Identity, error) {
	if err := v.init(origin); err != nil {
		return Identity{}, err
	}

	// Convert roles to []*string
	rolesPtrs := make([]*string, len(roles))
	for i := range roles {
		rolesPtrs[i] = &roles[i]
	}

	res, err := v.client.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  rolesPtrs,
	})
	if err != nil {
		return Identity{}, fmt.Errorf("session validation failed: %w", err)
	}
	if res == nil || !res.IsValid || res.User == nil {
		return Identity{}, ErrInvalidSession
	}

	return identityFromUser(res.User)
}

// authorizerUser is the subset of the Authorizer user profile we keep
type authorizerUser struct {
	ID                string   `json:"id"`
	Email             string   `json:"email"`
	GivenName         string   `json:"given_name"`
	FamilyName        string   `json:"family_name"`
	Nickname          string   `json:"nickname"`
	PreferredUsername string   `json:"preferred_username"`
	Roles             []string `json:"roles"`
}

// identityFromUser decodes the SDK user through its JSON form, which is stable across
// SDK releases while the Go field types are not.
func identityFromUser(user interface{}) (Identity, error) {
	raw, err := json.Marshal(user)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid user data format: %w", err)
	}
	var u authorizerUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return Identity{}, fmt.Errorf("invalid user data format: %w", err)
	}
	if u.ID == "" {
		return Identity{}, fmt.Errorf("user ID not found")
	}

	return Identity{
		ID:    u.ID,
		Name:  displayName(u),
		Email: u.Email,
		Roles: u.Roles,
	}, nil
}

func displayName(u authorizerUser) string {
	if name := strings.TrimSpace(u.GivenName + " " + u.FamilyName); name != "" {
		return name
	}
	for _, candidate := range []string{u.Nickname, u.PreferredUsername, u.Email} {
		if candidate != "" {
			return candidate
		}
	}
	return u.ID
}
