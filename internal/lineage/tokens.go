package lineage

import (
	"fmt"
	"slices"
	"strings"
)

// Stage tokens. The vocabulary is closed so that a desc value can be split
// back into its chain without ambiguity.
const (
	TokenAlign  = "Xc"
	TokenUnring = "Un"
	TokenCNN    = "CNN"
	TokenBet    = "Bet"
	TokenQC     = "Qc"
	TokenEddy   = "Ed"
	TokenEPI    = "Ep"
	TokenMabs   = "Mabs"
)

// Source prefixes recorded inside desc when a stage changes the role.
const (
	SourceDWI = "dwi"
	SourceT1w = "T1w"
	SourceT2w = "T2w"
)

// vocabulary is ordered longest first for greedy matching.
var vocabulary = []string{TokenMabs, TokenCNN, TokenBet, TokenAlign, TokenUnring, TokenQC, TokenEddy, TokenEPI}

var sources = []string{SourceDWI, SourceT1w, SourceT2w}

// maskTokens mark stages that created or corrected a mask rather than
// transforming the image it was computed from.
var maskTokens = []string{TokenCNN, TokenBet, TokenQC, TokenMabs}

// IsToken reports whether s is a stage token.
func IsToken(s string) bool {
	return slices.Contains(vocabulary, s)
}

// IsMaskToken reports whether s is a token produced by a masking stage.
func IsMaskToken(s string) bool {
	return slices.Contains(maskTokens, s)
}

// splitDesc separates a desc value into its source prefix and stage chain.
func splitDesc(desc string) (string, []string, error) {
	source := ""
	for _, s := range sources {
		if strings.HasPrefix(desc, s) {
			source = s
			desc = desc[len(s):]
			break
		}
	}

	var chain []string
	for rest := desc; rest != ""; {
		matched := ""
		for _, tok := range vocabulary {
			if strings.HasPrefix(rest, tok) {
				matched = tok
				break
			}
		}
		if matched == "" {
			return "", nil, fmt.Errorf("unknown stage token at %q", rest)
		}
		chain = append(chain, matched)
		rest = rest[len(matched):]
	}
	return source, chain, nil
}

// StripMaskTokens returns chain without masking stages.
func StripMaskTokens(chain []string) []string {
	out := make([]string, 0, len(chain))
	for _, tok := range chain {
		if !IsMaskToken(tok) {
			out = append(out, tok)
		}
	}
	return out
}

// ExtractStageChain parses the stage tokens out of a file name or path.
func ExtractStageChain(path string) ([]string, error) {
	n, err := Parse(path)
	if err != nil {
		return nil, err
	}
	return n.Chain, nil
}
