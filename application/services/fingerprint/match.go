package fingerprint

import "github.com/devscore/integrity/domain/repository"

// Match is the most similar peer found for a fingerprint.
type Match struct {
	PeerID     string
	Similarity float64
}

// BestMatch keeps the maximum similarity and the first peer that reached it.
func BestMatch(fingerprint []int64, peers []repository.PeerFingerprint) Match {
	var best Match
	for _, peer := range peers {
		s := Similarity(fingerprint, peer.Fingerprint)
		if s > best.Similarity {
			best = Match{PeerID: peer.SubmissionID, Similarity: s}
		}
	}
	return best
}
