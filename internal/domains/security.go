package domains

import "context"

// Security wraps the CDP Security domain, enabled alongside Page/DOM/
// Network/Overlay in the attach sequence so SetIgnoreCertificateErrors
// can be used against self-signed local test servers, grounded on
// tomyan-hubcap's launcher flags for disabling certificate warnings.
type Security struct {
	sessionDomain
}

// Enable turns on the Security domain for this session.
func (s *Security) Enable(ctx context.Context) error {
	_, err := s.call(ctx, "Security.enable", nil)
	return err
}

// SetIgnoreCertificateErrors suppresses TLS certificate warnings.
func (s *Security) SetIgnoreCertificateErrors(ctx context.Context, ignore bool) error {
	_, err := s.call(ctx, "Security.setIgnoreCertificateErrors", struct {
		Ignore bool `json:"ignore"`
	}{ignore})
	return err
}
