package address

import "testing"

func TestDeriveIsDeterministic(t *testing.T) {
	first := Derive(TagUserAccount, []byte("alice"))
	second := Derive(TagUserAccount, []byte("alice"))
	if first != second {
		t.Fatalf("expected stable derivation, got %q and %q", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(first))
	}
}

func TestDeriveSeparatesInputs(t *testing.T) {
	cases := map[string]string{
		"vault":              Vault(),
		"alice ledger":       DepositorLedger("alice"),
		"bob ledger":         DepositorLedger("bob"),
		"alice holding":      HoldingAccount("alice", "usdc"),
		"alice other asset":  HoldingAccount("alice", "eurc"),
		"shifted boundaries": Derive(TagHolding, []byte("aliceu"), []byte("sdc")),
		"single seed concat": Derive(TagHolding, []byte("aliceusdc")),
	}
	seen := make(map[string]string, len(cases))
	for name, location := range cases {
		if other, ok := seen[location]; ok {
			t.Fatalf("%s collides with %s", name, other)
		}
		seen[location] = name
	}
}

func TestVaultLocationMatchesTag(t *testing.T) {
	if Vault() != Derive(TagVault) {
		t.Fatal("vault location must derive from the vault tag alone")
	}
}
