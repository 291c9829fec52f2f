package webhooks

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-webhooks/core"
)

// SenderPack bundles named notification transports a downstream app
// contributes (chat, ticketing, paging) on top of the built-in ones.
type SenderPack struct {
	Name    string
	Senders map[string]core.NotificationSender
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

// ExtensionHooks lets embedding applications register extra notification
// transports and command/query bundles before the service is wired.
type ExtensionHooks struct {
	mu sync.RWMutex

	senderPacks map[string]SenderPack
	bundles     map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		senderPacks: map[string]SenderPack{},
		bundles:     map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterSenderPack(pack SenderPack) error {
	if h == nil {
		return fmt.Errorf("webhooks: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("webhooks: sender pack name is required")
	}
	if len(pack.Senders) == 0 {
		return fmt.Errorf("webhooks: sender pack %q has no senders", name)
	}
	normalized := SenderPack{
		Name:    name,
		Senders: make(map[string]core.NotificationSender, len(pack.Senders)),
	}
	for key, sender := range pack.Senders {
		key = strings.TrimSpace(strings.ToLower(key))
		if key == "" {
			return fmt.Errorf("webhooks: sender pack %q contains an unnamed sender", name)
		}
		if sender == nil {
			return fmt.Errorf("webhooks: sender pack %q sender %q is nil", name, key)
		}
		normalized.Senders[key] = sender
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.senderPacks[name]; exists {
		return fmt.Errorf("webhooks: sender pack %q already registered", name)
	}
	h.senderPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("webhooks: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("webhooks: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("webhooks: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("webhooks: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// Sender resolves a registered sender by its key. Later packs never shadow
// earlier ones because duplicate pack names are rejected at registration;
// lookup scans packs in name order and returns the first match.
func (h *ExtensionHooks) Sender(key string) (core.NotificationSender, bool) {
	if h == nil {
		return nil, false
	}
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return nil, false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.senderPacks))
	for name := range h.senderPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if sender, ok := h.senderPacks[name].Senders[key]; ok {
			return sender, true
		}
	}
	return nil, false
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("webhooks: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) SenderPacks() []SenderPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.senderPacks))
	for name := range h.senderPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]SenderPack, 0, len(names))
	for _, name := range names {
		pack := h.senderPacks[name]
		senders := make(map[string]core.NotificationSender, len(pack.Senders))
		for key, sender := range pack.Senders {
			senders[key] = sender
		}
		out = append(out, SenderPack{Name: pack.Name, Senders: senders})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
