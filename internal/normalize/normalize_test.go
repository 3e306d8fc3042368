package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := New()

	tests := []struct {
		name     string
		question string
		want     string
	}{
		{
			name:     "generic policy expands",
			question: "policy",
			want:     GenericExpansion,
		},
		{
			name:     "generic phrase is trimmed and case-folded",
			question: "  IT Policies ",
			want:     GenericExpansion,
		},
		{
			name:     "tab and lost get both suffixes",
			question: "my tab is lost",
			want:     "my tab is lost" + TabletSuffix + AssetLossSuffix,
		},
		{
			name:     "browser tab is left alone",
			question: "chrome tab keeps crashing",
			want:     "chrome tab keeps crashing",
		},
		{
			name:     "browser word suppresses tablet but not loss",
			question: "lost my browser tab",
			want:     "lost my browser tab" + AssetLossSuffix,
		},
		{
			name:     "substring tab inside a word does not match",
			question: "acceptable use of tablets at home",
			want:     "acceptable use of tablets at home",
		},
		{
			name:     "stolen laptop",
			question: "Laptop STOLEN from car",
			want:     "Laptop STOLEN from car" + AssetLossSuffix,
		},
		{
			name:     "bengali tab and theft",
			question: "আমার ট্যাব চুরি হয়েছে",
			want:     "আমার ট্যাব চুরি হয়েছে" + TabletSuffix + AssetLossSuffix,
		},
		{
			name:     "hindi multiword loss",
			question: "मेरा टैब खो गया",
			want:     "मेरा टैब खो गया" + TabletSuffix + AssetLossSuffix,
		},
		{
			name:     "romanized loss",
			question: "laptop churi ho gaya",
			want:     "laptop churi ho gaya" + AssetLossSuffix,
		},
		{
			name:     "untouched question is trimmed",
			question: "  vpn setup  ",
			want:     "vpn setup",
		},
		{
			name:     "empty stays empty",
			question: "   ",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.question))
		})
	}
}

func TestNormalize_GenericReplacementIsIdempotent(t *testing.T) {
	n := New()
	for _, q := range []string{"policy", "it policy", "it policies", "it"} {
		once := n.Normalize(q)
		assert.Equal(t, GenericExpansion, once)
		assert.Equal(t, once, n.Normalize(once))
	}
}

func TestNormalize_TabletAndLossRulesOrderIndependent(t *testing.T) {
	forward := New()
	reversed := New()
	reversed.rules[0], reversed.rules[1] = reversed.rules[1], reversed.rules[0]

	for _, q := range []string{"my tab is lost", "tab missing", "stolen tabs", "tab", "lost"} {
		assert.Equal(t, forward.Normalize(q), reversed.Normalize(q), q)
	}
}

func TestNormalize_ExtraLossKeywords(t *testing.T) {
	n := New("Misplaced")
	assert.Equal(t, "misplaced badge"+AssetLossSuffix, n.Normalize("misplaced badge"))
	assert.Equal(t, "misplaced badge", New().Normalize("misplaced badge"))
}
