package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.Parse != nil
}

func (s Service) Login(ctx context.Context, username, password string, rememberMe bool) LoginResult {
	return RunLogin(ctx, username, password, rememberMe, s.deps.Login)
}

func (s Service) Refresh(ctx context.Context, raw string) RefreshResult {
	return RunRefresh(ctx, raw, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, accessRaw, refreshRaw string) LogoutResult {
	return RunLogout(ctx, accessRaw, refreshRaw, s.deps.Logout)
}

func (s Service) Validate(ctx context.Context, raw string, strict bool) ValidateResult {
	return RunValidate(ctx, raw, strict, s.deps.Validate)
}
