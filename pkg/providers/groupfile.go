package providers

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/gatewarden/gatewarden/pkg/apperrors"
	"github.com/gatewarden/gatewarden/pkg/authorization"
	"github.com/gatewarden/gatewarden/pkg/models"
)

var _ authorization.Provider = (*GroupFileProvider)(nil)

// GroupFileProvider grants when the principal's name is a member of one of
// the groups named in the requirement. Groups come from a file of
// "group: member member ..." lines; lines starting with # are ignored.
// The file can be hot reloaded through a filesystem watch.
type GroupFileProvider struct {
	log  *zap.Logger
	path string

	mu      sync.RWMutex
	groups  map[string][]string
	loadErr error
}

func NewGroupFileProvider(log *zap.Logger, path string) *GroupFileProvider {
	prv := &GroupFileProvider{
		log:  log,
		path: path,
	}
	prv.reload()
	return prv
}

// Watch reloads the group file whenever it changes on disk. The watcher runs
// until the done channel closes.
func (p *GroupFileProvider) Watch(done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(p.path); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					p.log.Info("group file changed, reloading", zap.String("path", p.path))
					p.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.log.Error("group file watch failure", zap.Error(err))
			case <-done:
				return
			}
		}
	}()

	return nil
}

func (p *GroupFileProvider) reload() {
	groups, err := parseGroupFile(p.path)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.loadErr = err
		return
	}
	p.groups = groups
	p.loadErr = nil
}

func parseGroupFile(path string) (map[string][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.ErrGroupFileRead
	}
	defer file.Close()

	groups := make(map[string][]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, members, found := strings.Cut(line, ":")
		if !found {
			return nil, apperrors.ErrGroupFileFormat
		}
		groups[strings.TrimSpace(name)] = strings.Fields(members)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.ErrGroupFileRead
	}

	return groups, nil
}

func (p *GroupFileProvider) Authorize(
	scope *models.RequestScope,
	_ authorization.MethodMask,
	requirement string,
) authorization.Decision {
	p.mu.RLock()
	groups, loadErr := p.groups, p.loadErr
	p.mu.RUnlock()

	if loadErr != nil {
		p.log.Error(
			"group file unusable",
			zap.String("path", p.path),
			zap.Error(loadErr),
		)
		return authorization.GeneralErrorAuthz
	}

	if scope.Identity == nil {
		return authorization.DeniedAuthz
	}

	for _, group := range strings.Fields(requirement) {
		for _, member := range groups[group] {
			if member == scope.Identity.Name {
				return authorization.GrantedAuthz
			}
		}
	}

	return authorization.DeniedAuthz
}
