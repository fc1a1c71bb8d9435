// Package wallet derives deposit addresses for ledger wallets.
package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// Deriver maps a wallet id to a deterministic address. With no master key it
// hands out "W-<id>" placeholders.
type Deriver struct {
	masterKey *hdkeychain.ExtendedKey
	netParams *chaincfg.Params
}

func NetworkParams(name string) (*chaincfg.Params, error) {
	switch name {
	case "", "testnet3", "testnet":
		return &chaincfg.TestNet3Params, nil
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unknown btc network %q", name)
	}
}

func NewDeriver(masterKeySeed, network string) (*Deriver, error) {
	params, err := NetworkParams(network)
	if err != nil {
		return nil, err
	}

	d := &Deriver{netParams: params}
	if masterKeySeed == "" {
		return d, nil
	}

	masterKey, err := hdkeychain.NewKeyFromString(masterKeySeed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode master key: %w", err)
	}
	d.masterKey = masterKey
	return d, nil
}

func (d *Deriver) Address(walletID uint) (string, error) {
	if d.masterKey == nil {
		return fmt.Sprintf("W-%d", walletID), nil
	}
	if uint64(walletID) >= hdkeychain.HardenedKeyStart {
		return "", fmt.Errorf("wallet id %d out of derivation range", walletID)
	}

	child, err := d.masterKey.Derive(uint32(walletID))
	if err != nil {
		return "", fmt.Errorf("failed to derive child key %d: %w", walletID, err)
	}

	pub, err := child.ECPubKey()
	if err != nil {
		return "", fmt.Errorf("failed to get public key %d: %w", walletID, err)
	}

	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pub.SerializeCompressed()), d.netParams)
	if err != nil {
		return "", fmt.Errorf("failed to encode address %d: %w", walletID, err)
	}
	return addr.EncodeAddress(), nil
}
