package models

// IdentityProof is the zero-knowledge proof bundle a client obtains from World ID
type IdentityProof struct {
	MerkleRoot        string `json:"merkle_root" validate:"required"`
	NullifierHash     string `json:"nullifier_hash" validate:"required"`
	Proof             string `json:"proof" validate:"required"`
	VerificationLevel string `json:"verification_level,omitempty"`
}
