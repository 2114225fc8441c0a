// Command blockgen wires the block production pipeline together against
// an in-memory store and produces a single block proposal from a small
// synthetic mempool, logging the result.
package main

import (
	"context"
	"os"
	"time"

	"github.com/filecoin-project/go-address"
	"github.com/ipfs/go-cid"
	"github.com/sirupsen/logrus"

	"github.com/didem-chain/blockcore/pkg/blockprod"
	"github.com/didem-chain/blockcore/pkg/chain"
	"github.com/didem-chain/blockcore/pkg/clock"
	"github.com/didem-chain/blockcore/pkg/cryptography"
	"github.com/didem-chain/blockcore/pkg/mempool"
	"github.com/didem-chain/blockcore/pkg/runtime"
	"github.com/didem-chain/blockcore/pkg/store"
	"github.com/didem-chain/blockcore/pkg/vm"
	"github.com/didem-chain/blockcore/pkg/weight"
)

func main() {
	logger := logrus.NewEntry(logrus.StandardLogger())
	logrus.SetLevel(logrus.DebugLevel)

	if err := run(logger); err != nil {
		logger.WithError(err).Error("block generation failed")
		os.Exit(1)
	}
}

func run(logger *logrus.Entry) error {
	cas := store.NewMemStore()

	genesisTime := time.Now().UTC().Add(-time.Hour)
	tipsetCid, err := seedGenesis(cas)
	if err != nil {
		return err
	}

	pool := mempool.New()
	if err := seedMempool(pool); err != nil {
		return err
	}

	producer, err := blockprod.New(
		blockprod.WithCAS(cas),
		blockprod.WithInterpreter(vm.NewActorVM(runtime.MultisigCodeCID)),
		blockprod.WithWeightCalculator(weight.NewCalculator()),
		blockprod.WithMempool(pool),
		blockprod.WithCryptoProvider(cryptography.NewKyberProvider()),
		blockprod.WithClock(clock.UTCClock{}, clock.NewEpochClock(genesisTime, 30*time.Second)),
		blockprod.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	miner, err := address.NewIDAddress(1000)
	if err != nil {
		return err
	}

	block, err := producer.Generate(context.Background(), miner, tipsetCid, []byte("proof"), []byte("ticket"), nil)
	if err != nil {
		return err
	}

	blockCid, err := block.Cid()
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"cid":    blockCid.String(),
		"height": block.Header.Height,
		"bls":    len(block.BLSMessages),
		"secp":   len(block.SECPMessages),
	}).Info("produced block proposal")
	return nil
}

// seedGenesis stores an empty genesis header and the tipset referencing
// it, returning the tipset's CID.
func seedGenesis(cas store.Store) (cid.Cid, error) {
	miner, err := address.NewIDAddress(999)
	if err != nil {
		return cid.Undef, err
	}

	header := chain.BlockHeader{
		Miner:        chain.WrapAddr(miner),
		ParentWeight: chain.NewBigInt(0),
	}
	headerCid, err := store.PutCBOR(cas, &header)
	if err != nil {
		return cid.Undef, err
	}

	ts := chain.Tipset{
		Cids:         chain.CIDList{chain.WrapCID(headerCid)},
		ParentWeight: chain.NewBigInt(0),
	}
	return store.PutCBOR(cas, &ts)
}

// seedMempool fills the pool with one BLS-signed and one secp-signed
// message so the produced block exercises both commitment arrays.
func seedMempool(pool *mempool.Pool) error {
	from, err := address.NewIDAddress(1)
	if err != nil {
		return err
	}
	to, err := address.NewIDAddress(2)
	if err != nil {
		return err
	}

	msg := chain.UnsignedMessage{
		To:         chain.WrapAddr(to),
		From:       chain.WrapAddr(from),
		Value:      chain.NewBigInt(5),
		GasLimit:   1000,
		GasFeeCap:  chain.NewBigInt(1),
		GasPremium: chain.NewBigInt(2),
	}
	raw, err := chain.MarshalCBOR(&msg)
	if err != nil {
		return err
	}

	blsKey := cryptography.NewBls12381PrivateKey()
	blsSig, err := blsKey.Sign(nil, raw, nil)
	if err != nil {
		return err
	}
	if err := pool.Add(chain.SignedMessage{Message: msg, Signature: chain.BLSSignature(blsSig)}); err != nil {
		return err
	}

	secpMsg := msg
	secpMsg.Nonce = 1
	secpMsg.GasPremium = chain.NewBigInt(1)
	raw, err = chain.MarshalCBOR(&secpMsg)
	if err != nil {
		return err
	}

	secpKey, err := cryptography.NewEcdsaSecp256k1PrivateKey()
	if err != nil {
		return err
	}
	secpSig, err := secpKey.Sign(nil, raw, nil)
	if err != nil {
		return err
	}
	return pool.Add(chain.SignedMessage{Message: secpMsg, Signature: chain.Secp256k1Signature(secpSig)})
}
