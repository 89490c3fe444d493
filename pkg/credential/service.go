/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/pkg/common/log"
	diddoc "github.com/hyperledger/aries-framework-go/pkg/doc/did"
	"github.com/pkg/errors"

	"github.com/scoir/attestor/pkg/claim"
	"github.com/scoir/attestor/pkg/datastore"
	"github.com/scoir/attestor/pkg/did"
	"github.com/scoir/attestor/pkg/errcode"
	"github.com/scoir/attestor/pkg/signature"
	"github.com/scoir/attestor/pkg/vdr"
)

var logger = log.New("attestor/credential")

//go:generate mockery -name=DocumentResolver
type DocumentResolver interface {
	ResolvePublicKeyDocument(ctx context.Context, id string) (*diddoc.Doc, error)
}

type SchemaStore interface {
	GetSchema(cptID int) (*datastore.Schema, error)
}

type Service struct {
	resolver    DocumentResolver
	schemas     SchemaStore
	now         func() time.Time
	checkExpiry bool
	saltOpts    []claim.SaltOption
}

type Option func(s *Service)

// WithClock replaces the time source used for issuance dates and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithExpiryCheck controls whether verification rejects expired credentials.  On by default.
func WithExpiryCheck(check bool) Option {
	return func(s *Service) {
		s.checkExpiry = check
	}
}

// WithSaltOptions configures salt generation at issuance.
func WithSaltOptions(opts ...claim.SaltOption) Option {
	return func(s *Service) {
		s.saltOpts = opts
	}
}

func New(resolver DocumentResolver, schemas SchemaStore, opts ...Option) *Service {
	s := &Service{
		resolver:    resolver,
		schemas:     schemas,
		now:         time.Now,
		checkExpiry: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Issue signs args.Claim for args.Issuer.  The returned bundle carries the full salt tree and
// is the only copy of it.
func (s *Service) Issue(args *IssueArgs) (*Bundle, error) {
	now := s.now().Unix()
	if err := validateIssueArgs(args, now); err != nil {
		return nil, err
	}

	schema, err := s.schemas.GetSchema(args.CptID)
	if err != nil {
		return nil, err
	}

	if err = schema.Match(args.Claim); err != nil {
		return nil, err
	}

	cred := &Credential{
		Context:        DefaultContext,
		ID:             "urn:uuid:" + uuid.New().String(),
		CptID:          args.CptID,
		Issuer:         args.Issuer,
		IssuanceDate:   now,
		ExpirationDate: args.ExpirationDate,
		Claim:          args.Claim.Copy(),
	}

	salt, err := claim.GenerateSaltTree(cred.Claim, s.saltOpts...)
	if err != nil {
		return nil, errors.Wrap(errcode.ErrCredentialError, err.Error())
	}

	tp, err := Thumbprint(cred, salt)
	if err != nil {
		return nil, err
	}

	sig, err := signature.Sign(tp, args.Key)
	if err != nil {
		return nil, errors.Wrap(errcode.ErrCredentialError, err.Error())
	}
	cred.Signature = signature.EncodeSignature(sig)

	logger.Debugf("issued credential %s of cpt %d for %s", cred.ID, cred.CptID, cred.Issuer)
	return &Bundle{Credential: cred, Salt: salt}, nil
}

func validateIssueArgs(args *IssueArgs, now int64) error {
	if args == nil {
		return errors.Wrap(errcode.ErrInputIllegal, "issue arguments are required")
	}
	if args.CptID <= 0 {
		return errors.Wrapf(errcode.ErrInputIllegal, "invalid cptId %d", args.CptID)
	}
	if args.Claim == nil || args.Claim.Len() == 0 {
		return errors.Wrap(errcode.ErrInputIllegal, "claim is empty")
	}
	if args.Key == nil {
		return errors.Wrap(errcode.ErrInputIllegal, "issuer key is required")
	}
	if args.ExpirationDate <= now {
		return errors.Wrap(errcode.ErrInputIllegal, "expiration date must be in the future")
	}

	issuer, err := did.Parse(args.Issuer)
	if err != nil {
		return errors.Wrap(errcode.ErrInputIllegal, err.Error())
	}
	if issuer.Address != signature.Address(args.Key.PubKey()) {
		return errors.Wrapf(errcode.ErrInputIllegal, "key does not belong to issuer %s", args.Issuer)
	}

	return nil
}

// Redact hides every field whose disclosure leaf is claim.NotDisclosed.  The input bundle is
// not modified.  Redacting an already hidden field leaves it as it is.
func (s *Service) Redact(b *Bundle, disclosure *claim.Tree) (*Bundle, error) {
	if err := b.check(); err != nil {
		return nil, err
	}

	out := b.Copy()
	if err := claim.ValidateShapes(out.Credential.Claim, out.Salt, disclosure); err != nil {
		return nil, err
	}

	if err := redact(out.Credential.Claim, out.Salt, disclosure, ""); err != nil {
		return nil, err
	}

	return out, nil
}

func redact(c, salt, disclosure *claim.Tree, path string) error {
	for _, k := range disclosure.Keys() {
		dn, _ := disclosure.Get(k)
		cn, _ := c.Get(k)
		sn, _ := salt.Get(k)

		if sub, ok := dn.(*claim.Tree); ok {
			if err := redact(cn.(*claim.Tree), sn.(*claim.Tree), sub, path+k+"."); err != nil {
				return err
			}
			continue
		}

		v, ok := claim.DisclosureValue(dn)
		if !ok {
			return errors.Wrapf(errcode.ErrPolicyValueIllegal, "field %s%s", path, k)
		}

		hidden := claim.IsNotDisclosed(sn)
		switch {
		case v == claim.Disclosed && hidden:
			return errors.Wrapf(errcode.ErrDisclosureSaltMismatch, "field %s%s is already hidden", path, k)
		case v == claim.NotDisclosed && !hidden:
			c.Set(k, claim.Scalar{Value: claim.FieldHash(cn.(claim.Scalar).String(), sn.(claim.Scalar).String())})
			salt.Set(k, claim.NotDisclosedLeaf)
		}
	}

	return nil
}

// Verify checks b against the key of issuerID as registered on the ledger.
func (s *Service) Verify(ctx context.Context, b *Bundle, issuerID string) error {
	if err := b.check(); err != nil {
		return err
	}

	if issuerID != b.Credential.Issuer {
		return errors.Wrapf(errcode.ErrIssuerMismatch, "credential issued by %s, not %s", b.Credential.Issuer, issuerID)
	}

	pub, err := s.resolveKey(ctx, issuerID)
	if err != nil {
		return err
	}

	return s.verifyContent(b, pub)
}

// VerifyWithKey checks b against a base58 serialized public key.
func (s *Service) VerifyWithKey(b *Bundle, publicKey string) error {
	if err := b.check(); err != nil {
		return err
	}

	if publicKey == "" {
		return errcode.ErrPublicKeyNotExists
	}

	pub, err := did.ParseVerkey(publicKey)
	if err != nil {
		return errors.Wrap(errcode.ErrInputIllegal, err.Error())
	}

	return s.verifyContent(b, pub)
}

func (s *Service) resolveKey(ctx context.Context, id string) (*btcec.PublicKey, error) {
	doc, err := s.resolver.ResolvePublicKeyDocument(ctx, id)
	if err != nil {
		logger.Warnf("unable to resolve identity document of %s: %v", id, err)
		return nil, errors.Wrapf(errcode.ErrIdentityDocumentUnavailable, "%s: %v", id, err)
	}

	pub, err := vdr.PublicKey(doc)
	if err != nil {
		return nil, errors.Wrapf(errcode.ErrIdentityDocumentUnavailable, "%s: %v", id, err)
	}

	return pub, nil
}

func (s *Service) verifyContent(b *Bundle, pub *btcec.PublicKey) error {
	cred := b.Credential
	if s.checkExpiry && cred.IsExpired(s.now()) {
		return errors.Wrapf(errcode.ErrCredentialExpired, "credential %s", cred.ID)
	}

	tp, err := Thumbprint(cred, b.Salt)
	if err != nil {
		return err
	}

	sig, err := signature.DecodeSignature(cred.Signature)
	if err != nil {
		return errors.Wrap(errcode.ErrSignatureBroken, err.Error())
	}

	ok, err := signature.Verify(tp, sig, pub)
	if err != nil {
		return errors.Wrap(errcode.ErrSignatureBroken, err.Error())
	}
	if !ok {
		return errors.Wrapf(errcode.ErrSignatureInvalid, "credential %s", cred.ID)
	}

	return nil
}

// VerifyPresentationPolicy checks that the salt tree of b is consistent with disclosure: a
// disclosed field has a real salt and a hidden field has the sentinel.
func (s *Service) VerifyPresentationPolicy(b *Bundle, disclosure *claim.Tree) error {
	if err := b.check(); err != nil {
		return err
	}
	if disclosure == nil {
		return errors.Wrap(errcode.ErrClaimPolicyNotExist, "disclosure policy is empty")
	}

	return checkPolicy(b.Salt, disclosure, "")
}

func checkPolicy(salt, disclosure *claim.Tree, path string) error {
	for _, k := range disclosure.Keys() {
		dn, _ := disclosure.Get(k)
		sn, ok := salt.Get(k)

		if sub, isTree := dn.(*claim.Tree); isTree {
			ssub, saltIsTree := sn.(*claim.Tree)
			if !saltIsTree {
				return errors.Wrapf(errcode.ErrStructuralMismatch, "field %s%s", path, k)
			}
			if err := checkPolicy(ssub, sub, path+k+"."); err != nil {
				return err
			}
			continue
		}

		v, legal := claim.DisclosureValue(dn)
		if !legal {
			return errors.Wrapf(errcode.ErrPolicyValueIllegal, "field %s%s", path, k)
		}

		leaf, isScalar := sn.(claim.Scalar)
		if !ok || (isScalar && (leaf.Value == nil || leaf.String() == "")) {
			return errors.Wrapf(errcode.ErrPolicyValueIllegal, "field %s%s has no salt", path, k)
		}
		if !isScalar {
			return errors.Wrapf(errcode.ErrStructuralMismatch, "field %s%s", path, k)
		}

		hidden := claim.IsNotDisclosed(leaf)
		if v == claim.NotDisclosed && !hidden {
			return errors.Wrapf(errcode.ErrDisclosureSaltMismatch, "field %s%s is not hidden", path, k)
		}
		if v == claim.Disclosed && (hidden || len(leaf.String()) <= 1) {
			return errors.Wrapf(errcode.ErrDisclosureSaltMismatch, "field %s%s is not disclosed", path, k)
		}
	}

	return nil
}
