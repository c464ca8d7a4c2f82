// Package ledger implements filechain.Anchorer against an Algorand
// application that records (file id, cid, permissions) in a box keyed by
// file id.
package ledger

import (
	"bytes"
	"context"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/filechain/filechain/pkg/filechain"
)

const (
	addFileMethod = "add_file"

	// boxPrefix matches the application's box key prefix.
	boxPrefix = "file_"

	defaultWaitRounds = 4
)

// Config holds the ledger client configuration.
type Config struct {
	// AlgodURL is the algod node endpoint, e.g.
	// "https://testnet-api.algonode.cloud".
	AlgodURL   string
	AlgodToken string

	// AppID identifies the file-storage application.
	AppID uint64

	// SignerMnemonic is the 25-word mnemonic of the transaction signer.
	// A client without a signer can still verify anchors but cannot
	// create them.
	SignerMnemonic string

	// WaitRounds bounds how long Anchor waits for confirmation.
	WaitRounds uint64
}

// AnchoredFile is the decoded box value for an anchored file.
type AnchoredFile struct {
	CID         string
	Permissions filechain.Permissions
}

// Client submits anchor transactions to the ledger application. Each
// Anchor call sends exactly one transaction; rejections and network
// faults are surfaced verbatim with no retry.
type Client struct {
	algod      *algod.Client
	appID      uint64
	signer     *crypto.Account
	waitRounds uint64
}

// NewClient creates a ledger client from config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.AlgodURL == "" {
		return nil, fmt.Errorf("algod url is required")
	}
	if cfg.AppID == 0 {
		return nil, fmt.Errorf("application id is required")
	}

	algodClient, err := algod.MakeClient(cfg.AlgodURL, cfg.AlgodToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create algod client: %w", err)
	}

	c := &Client{
		algod:      algodClient,
		appID:      cfg.AppID,
		waitRounds: cfg.WaitRounds,
	}
	if c.waitRounds == 0 {
		c.waitRounds = defaultWaitRounds
	}

	if cfg.SignerMnemonic != "" {
		sk, err := mnemonic.ToPrivateKey(cfg.SignerMnemonic)
		if err != nil {
			return nil, fmt.Errorf("invalid signer mnemonic: %w", err)
		}
		account, err := crypto.AccountFromPrivateKey(sk)
		if err != nil {
			return nil, fmt.Errorf("failed to derive signer account: %w", err)
		}
		c.signer = &account
	}

	return c, nil
}

// SignerAddress returns the configured signer's address, or "" when no
// signer is configured.
func (c *Client) SignerAddress() string {
	if c.signer == nil {
		return ""
	}
	return c.signer.Address.String()
}

// Anchor implements filechain.Anchorer. The signer precondition and the
// CID format are checked before any network call, so a malformed value
// never costs a transaction fee.
func (c *Client) Anchor(ctx context.Context, fileID, cid string, permissions filechain.Permissions) (*filechain.AnchorReceipt, error) {
	if c.signer == nil {
		return nil, filechain.ErrNoSigner
	}
	if fileID == "" {
		return nil, &filechain.ValidationError{Field: "file_id", Reason: "must not be empty"}
	}
	if err := filechain.ValidateCID(cid); err != nil {
		return nil, err
	}
	if !permissions.Valid() {
		return nil, &filechain.ValidationError{Field: "permissions", Reason: "must be 'public' or 'private'"}
	}

	sp, err := c.algod.SuggestedParams().Do(ctx)
	if err != nil {
		return nil, &filechain.AnchorError{FileID: fileID, Op: "params", Err: err}
	}

	appArgs := [][]byte{
		[]byte(addFileMethod),
		[]byte(fileID),
		[]byte(cid),
		[]byte(permissions),
	}
	boxes := []types.AppBoxReference{{AppID: c.appID, Name: boxName(fileID)}}

	tx, err := transaction.MakeApplicationNoOpTxWithBoxes(
		c.appID, appArgs, nil, nil, nil, boxes, sp,
		c.signer.Address, nil, types.Digest{}, [32]byte{}, types.ZeroAddress)
	if err != nil {
		return nil, &filechain.AnchorError{FileID: fileID, Op: "build", Err: err}
	}

	txid, stx, err := crypto.SignTransaction(c.signer.PrivateKey, tx)
	if err != nil {
		return nil, &filechain.AnchorError{FileID: fileID, Op: "sign", Err: err}
	}

	if _, err := c.algod.SendRawTransaction(stx).Do(ctx); err != nil {
		return nil, &filechain.AnchorError{FileID: fileID, Op: "submit", Err: err}
	}

	info, err := transaction.WaitForConfirmation(c.algod, txid, c.waitRounds, ctx)
	if err != nil {
		return nil, &filechain.AnchorError{FileID: fileID, Op: "confirm", Err: err}
	}

	return &filechain.AnchorReceipt{
		TxID:           txid,
		ConfirmedRound: info.ConfirmedRound,
	}, nil
}

// VerifyAnchor reads the application box for a file id and returns the
// anchored CID and permissions.
func (c *Client) VerifyAnchor(ctx context.Context, fileID string) (*AnchoredFile, error) {
	if fileID == "" {
		return nil, &filechain.ValidationError{Field: "file_id", Reason: "must not be empty"}
	}

	box, err := c.algod.GetApplicationBoxByName(c.appID, boxName(fileID)).Do(ctx)
	if err != nil {
		return nil, &filechain.AnchorError{FileID: fileID, Op: "box", Err: err}
	}

	anchored, err := parseBoxValue(box.Value)
	if err != nil {
		return nil, &filechain.AnchorError{FileID: fileID, Op: "box", Err: err}
	}
	return anchored, nil
}

func boxName(fileID string) []byte {
	return append([]byte(boxPrefix), fileID...)
}

// parseBoxValue decodes the application's "cid|permissions" box format.
func parseBoxValue(value []byte) (*AnchoredFile, error) {
	parts := bytes.SplitN(value, []byte{'|'}, 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed box value %q", value)
	}
	permissions := filechain.Permissions(parts[1])
	if !permissions.Valid() {
		return nil, fmt.Errorf("malformed box permissions %q", parts[1])
	}
	return &AnchoredFile{
		CID:         string(parts[0]),
		Permissions: permissions,
	}, nil
}
