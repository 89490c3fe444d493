/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"context"
	"encoding/json"

	"github.com/btcsuite/btcd/btcec"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/claim"
	"github.com/scoir/attestor/pkg/did"
	"github.com/scoir/attestor/pkg/errcode"
	"github.com/scoir/attestor/pkg/signature"
)

const (
	PresentationType = "VerifiablePresentation"
	ProofType        = "Secp256k1Signature2019"
)

// ClaimPolicy is the disclosure tree a verifier requests for one cptId.
type ClaimPolicy struct {
	FieldsToBeDisclosed *claim.Tree `json:"fieldsToBeDisclosed"`
}

// PresentationPolicy maps cptId to the claim policy of every credential a verifier wants.
type PresentationPolicy struct {
	ID     int                  `json:"id"`
	Policy map[int]*ClaimPolicy `json:"policy"`
}

// Challenge binds a presentation to one presenter and one request.  ID is the presenter's
// identifier.
type Challenge struct {
	ID      string `json:"id"`
	Nonce   string `json:"nonce"`
	Version int    `json:"version"`
}

type Proof struct {
	Type      string `json:"type"`
	Created   int64  `json:"created"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

type Presentation struct {
	Context     []string  `json:"context"`
	Type        []string  `json:"type"`
	Credentials []*Bundle `json:"verifiableCredential"`
	Proof       *Proof    `json:"proof"`
}

// NewChallenge returns a challenge with a fresh nonce for presenterID.
func NewChallenge(presenterID string) *Challenge {
	return &Challenge{ID: presenterID, Nonce: uuid.New().String(), Version: 1}
}

func (r *Challenge) digest() ([]byte, error) {
	b, err := json.Marshal(r)
	return b, errors.Wrap(err, "unable to serialize challenge")
}

// CreatePresentation redacts every bundle to the policy of its cptId and signs the challenge
// with the presenter's key.
func (s *Service) CreatePresentation(bundles []*Bundle, policy *PresentationPolicy, challenge *Challenge, key *btcec.PrivateKey) (*Presentation, error) {
	if len(bundles) == 0 || policy == nil || challenge == nil || key == nil {
		return nil, errors.Wrap(errcode.ErrInputIllegal, "bundles, policy, challenge and key are required")
	}

	presenter, err := did.Parse(challenge.ID)
	if err != nil {
		return nil, errors.Wrap(errcode.ErrInputIllegal, err.Error())
	}
	if presenter.Address != signature.Address(key.PubKey()) {
		return nil, errors.Wrapf(errcode.ErrPresenterMismatch, "key does not belong to %s", challenge.ID)
	}

	out := &Presentation{
		Context: []string{DefaultContext},
		Type:    []string{PresentationType},
	}

	for _, b := range bundles {
		if err = b.check(); err != nil {
			return nil, err
		}

		cp, ok := policy.Policy[b.Credential.CptID]
		if !ok || cp == nil {
			return nil, errors.Wrapf(errcode.ErrClaimPolicyNotExist, "cptId %d", b.Credential.CptID)
		}

		redacted, err := s.Redact(b, cp.FieldsToBeDisclosed)
		if err != nil {
			return nil, err
		}
		out.Credentials = append(out.Credentials, redacted)
	}

	digest, err := challenge.digest()
	if err != nil {
		return nil, err
	}

	sig, err := signature.Sign(digest, key)
	if err != nil {
		return nil, errors.Wrap(errcode.ErrCredentialError, err.Error())
	}

	out.Proof = &Proof{
		Type:      ProofType,
		Created:   s.now().Unix(),
		Nonce:     challenge.Nonce,
		Signature: signature.EncodeSignature(sig),
	}

	return out, nil
}

// VerifyPresentation checks that p answers challenge for presenterID, covers exactly the
// cptIds of policy, discloses what policy asks for and carries valid credentials.
func (s *Service) VerifyPresentation(ctx context.Context, presenterID string, policy *PresentationPolicy, challenge *Challenge, p *Presentation) error {
	if _, err := did.Parse(presenterID); err != nil {
		return errors.Wrap(errcode.ErrInputIllegal, err.Error())
	}
	if policy == nil || len(policy.Policy) == 0 || challenge == nil {
		return errors.Wrap(errcode.ErrInputIllegal, "policy and challenge are required")
	}
	if p == nil || p.Proof == nil || len(p.Credentials) == 0 {
		return errors.Wrap(errcode.ErrInputIllegal, "presentation is incomplete")
	}

	if presenterID != challenge.ID {
		return errors.Wrapf(errcode.ErrPresenterMismatch, "challenge issued to %s, not %s", challenge.ID, presenterID)
	}

	if err := s.verifyChallenge(ctx, presenterID, challenge, p.Proof); err != nil {
		return err
	}

	if err := verifyCptIDs(policy, p.Credentials); err != nil {
		return err
	}

	for _, b := range p.Credentials {
		if err := s.VerifyPresentationPolicy(b, policy.Policy[b.Credential.CptID].FieldsToBeDisclosed); err != nil {
			return err
		}

		if err := s.Verify(ctx, b, b.Credential.Issuer); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) verifyChallenge(ctx context.Context, presenterID string, challenge *Challenge, proof *Proof) error {
	pub, err := s.resolveKey(ctx, presenterID)
	if err != nil {
		return err
	}

	digest, err := challenge.digest()
	if err != nil {
		return err
	}

	sig, err := signature.DecodeSignature(proof.Signature)
	if err != nil {
		return errors.Wrap(errcode.ErrSignatureBroken, err.Error())
	}

	ok, err := signature.Verify(digest, sig, pub)
	if err != nil {
		return errors.Wrap(errcode.ErrSignatureBroken, err.Error())
	}
	if !ok {
		return errors.Wrap(errcode.ErrSignatureInvalid, "challenge signature does not verify")
	}

	return nil
}

func verifyCptIDs(policy *PresentationPolicy, bundles []*Bundle) error {
	if len(policy.Policy) != len(bundles) {
		return errors.Wrapf(errcode.ErrCptIDMismatch, "policy asks for %d credentials, got %d", len(policy.Policy), len(bundles))
	}

	seen := map[int]bool{}
	for _, b := range bundles {
		if err := b.check(); err != nil {
			return err
		}

		cpt := b.Credential.CptID
		cp, ok := policy.Policy[cpt]
		if !ok || seen[cpt] {
			return errors.Wrapf(errcode.ErrCptIDMismatch, "unexpected cptId %d", cpt)
		}
		if cp == nil || cp.FieldsToBeDisclosed == nil {
			return errors.Wrapf(errcode.ErrClaimPolicyNotExist, "cptId %d", cpt)
		}
		seen[cpt] = true
	}

	return nil
}
