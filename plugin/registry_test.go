package plugin

import (
	"context"
	"testing"
	"time"
)

// fullPlugin implements every hook interface.
type fullPlugin struct {
	name  string
	calls map[string]int
}

func newFullPlugin(name string) *fullPlugin {
	return &fullPlugin{name: name, calls: make(map[string]int)}
}

func (p *fullPlugin) Name() string { return p.name }

func (p *fullPlugin) OnInit(_ context.Context, _ interface{}) error {
	p.calls["OnInit"]++
	return nil
}

func (p *fullPlugin) OnShutdown(_ context.Context) error {
	p.calls["OnShutdown"]++
	return nil
}

func (p *fullPlugin) OnTokenCreated(_ context.Context, _ interface{}) error {
	p.calls["OnTokenCreated"]++
	return nil
}

func (p *fullPlugin) OnMinted(_ context.Context, _ interface{}, _, _ string) error {
	p.calls["OnMinted"]++
	return nil
}

func (p *fullPlugin) OnApprovalSet(_ context.Context, _ interface{}, _, _, _ string) error {
	p.calls["OnApprovalSet"]++
	return nil
}

func (p *fullPlugin) OnTokensPurchased(_ context.Context, _ interface{}) error {
	p.calls["OnTokensPurchased"]++
	return nil
}

func (p *fullPlugin) OnPurchaseRejected(_ context.Context, _, _ string, _ error) error {
	p.calls["OnPurchaseRejected"]++
	return nil
}

func (p *fullPlugin) OnSaleStopped(_ context.Context, _ interface{}) error {
	p.calls["OnSaleStopped"]++
	return nil
}

func (p *fullPlugin) OnSaleStarted(_ context.Context, _ interface{}) error {
	p.calls["OnSaleStarted"]++
	return nil
}

func (p *fullPlugin) OnRecipientChanged(_ context.Context, _ interface{}, _, _ string) error {
	p.calls["OnRecipientChanged"]++
	return nil
}

func (p *fullPlugin) OnRateChanged(_ context.Context, _ interface{}, _, _ string) error {
	p.calls["OnRateChanged"]++
	return nil
}

func (p *fullPlugin) OnKYCApproved(_ context.Context, _, _ string) error {
	p.calls["OnKYCApproved"]++
	return nil
}

func (p *fullPlugin) OnKYCRevoked(_ context.Context, _, _ string) error {
	p.calls["OnKYCRevoked"]++
	return nil
}

func (p *fullPlugin) OnJournalFlushed(_ context.Context, _ int, _ time.Duration) error {
	p.calls["OnJournalFlushed"]++
	return nil
}

func (p *fullPlugin) ForwardPayment(_ context.Context, _, _ string) error {
	p.calls["ForwardPayment"]++
	return nil
}

func TestGetImplementedInterfaces(t *testing.T) {
	r := NewRegistry()
	got := r.getImplementedInterfaces(newFullPlugin("full"))

	want := []string{
		"OnInit",
		"OnShutdown",
		"OnTokenCreated",
		"OnMinted",
		"OnApprovalSet",
		"OnTokensPurchased",
		"OnPurchaseRejected",
		"OnSaleStopped",
		"OnSaleStarted",
		"OnRecipientChanged",
		"OnRateChanged",
		"OnKYCApproved",
		"OnKYCRevoked",
		"OnJournalFlushed",
		"PaymentForwarder",
	}

	index := make(map[string]bool, len(got))
	for _, name := range got {
		index[name] = true
	}
	for _, name := range want {
		if !index[name] {
			t.Errorf("interface %q missing from implemented list %v", name, got)
		}
	}
	if len(got) != len(want) {
		t.Errorf("implemented list has %d entries, want %d: %v", len(got), len(want), got)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newFullPlugin("dup")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(newFullPlugin("dup")); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}
}

func TestDispatchReachesCachedHooks(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	p := newFullPlugin("full")
	if err := r.Register(p); err != nil {
		t.Fatalf("register: %v", err)
	}

	r.EmitRecipientChanged(ctx, nil, "old", "new")
	r.EmitRateChanged(ctx, nil, "500", "250")
	r.EmitKYCRevoked(ctx, "gate_1", "acct_1")
	r.EmitJournalFlushed(ctx, 3, time.Millisecond)

	for _, hook := range []string{"OnRecipientChanged", "OnRateChanged", "OnKYCRevoked", "OnJournalFlushed"} {
		if p.calls[hook] != 1 {
			t.Errorf("%s calls = %d, want 1", hook, p.calls[hook])
		}
	}
}
