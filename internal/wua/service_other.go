//go:build !windows

package wua

// UpdateService is a stub on non-Windows platforms; every operation
// reports ErrUnsupported.
type UpdateService struct{}

// NewUpdateService creates the stub service.
func NewUpdateService(_ Options) *UpdateService {
	return &UpdateService{}
}

func (s *UpdateService) Search(_ string) ([]Update, error) {
	return nil, ErrUnsupported
}

func (s *UpdateService) Download(_ []Update) (DownloadResult, error) {
	return DownloadResult{}, ErrUnsupported
}

func (s *UpdateService) Install(_ []Update) (InstallResult, error) {
	return InstallResult{}, ErrUnsupported
}
