package wallet

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/filswan/go-swan-lib/logs"
	"github.com/lagrangedao/go-compute-to-data/util"
	"github.com/lagrangedao/go-compute-to-data/wallet/conf"
	"github.com/lagrangedao/go-compute-to-data/wallet/contract/erc20"
	"github.com/lagrangedao/go-compute-to-data/wallet/contract/escrow"
	"github.com/lagrangedao/go-compute-to-data/wallet/tablewriter"
	"golang.org/x/xerrors"
)

const (
	WalletRepo  = "keystore"
	KNamePrefix = "wallet-"
)

var (
	ErrKeyInfoNotFound = fmt.Errorf("key info not found")
	ErrKeyExists       = fmt.Errorf("key already exists")
)

var reAddress = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")

func SetupWallet(dir string) (*LocalWallet, error) {
	repoPath, exit := os.LookupEnv("C2D_PATH")
	if !exit {
		return nil, fmt.Errorf("missing C2D_PATH env, please set export C2D_PATH=xxx")
	}

	kstore, err := OpenOrInitKeystore(filepath.Join(repoPath, dir))
	if err != nil {
		return nil, err
	}

	return NewWallet(kstore)
}

type LocalWallet struct {
	keys     map[string]*KeyInfo
	keystore KeyStore

	lk sync.Mutex
}

func NewWallet(keystore KeyStore) (*LocalWallet, error) {
	w := &LocalWallet{
		keys:     make(map[string]*KeyInfo),
		keystore: keystore,
	}
	return w, nil
}

func (w *LocalWallet) WalletSign(ctx context.Context, addr string, msg []byte) (string, error) {
	ki, err := w.findKey(addr)
	if err != nil {
		return "", err
	}
	if ki == nil {
		return "", xerrors.Errorf("signing using private key '%s': %w", addr, ErrKeyInfoNotFound)
	}
	sig, err := Sign(ki.PrivateKey, msg)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig.Data), nil
}

func (w *LocalWallet) WalletVerify(ctx context.Context, addr string, sigByte []byte, data string) (bool, error) {
	ki, err := w.findKey(addr)
	if err != nil {
		return false, err
	}
	if ki == nil {
		return false, xerrors.Errorf("verify using private key '%s': %w", addr, ErrKeyInfoNotFound)
	}

	return Verify(&Signature{Data: sigByte}, ki.PrivateKey, []byte(data))
}

func (w *LocalWallet) findKey(addr string) (*KeyInfo, error) {
	if !reAddress.MatchString(addr) {
		return nil, xerrors.Errorf("invalid address: %s", addr)
	}
	addr = common.HexToAddress(addr).Hex()

	w.lk.Lock()
	defer w.lk.Unlock()

	k, ok := w.keys[addr]
	if ok {
		return k, nil
	}
	if w.keystore == nil {
		logs.GetLogger().Warn("findKey didn't find the key in in-memory wallet")
		return nil, nil
	}

	ki, err := w.tryFind(addr)
	if err != nil {
		if xerrors.Is(err, ErrKeyInfoNotFound) {
			return nil, nil
		}
		return nil, xerrors.Errorf("getting from keystore: %w", err)
	}

	w.keys[addr] = &ki
	return &ki, nil
}

func (w *LocalWallet) tryFind(key string) (KeyInfo, error) {
	return w.keystore.Get(KNamePrefix + key)
}

func (w *LocalWallet) WalletExport(ctx context.Context, addr string) (*KeyInfo, error) {
	k, err := w.findKey(addr)
	if err != nil {
		return nil, xerrors.Errorf("failed to find key to export: %w", err)
	}
	if k == nil {
		return nil, xerrors.Errorf("private key not found for %s", addr)
	}

	return k, nil
}

func (w *LocalWallet) WalletImport(ctx context.Context, ki *KeyInfo) (string, error) {
	if ki == nil || len(strings.TrimSpace(ki.PrivateKey)) == 0 {
		return "", fmt.Errorf("not found private key")
	}
	ki.PrivateKey = strings.TrimPrefix(strings.TrimSpace(ki.PrivateKey), "0x")

	addr, err := ToAddress(ki.PrivateKey)
	if err != nil {
		return "", err
	}
	address := addr.Hex()

	if existing, _ := w.findKey(address); existing != nil {
		return "", xerrors.Errorf("import %s: %w", address, ErrKeyExists)
	}

	w.lk.Lock()
	defer w.lk.Unlock()
	if err := w.keystore.Put(KNamePrefix+address, *ki); err != nil {
		return "", xerrors.Errorf("saving to keystore: %w", err)
	}
	w.keys[address] = ki
	return address, nil
}

func (w *LocalWallet) WalletNew(ctx context.Context) (string, error) {
	w.lk.Lock()
	defer w.lk.Unlock()

	privateK, err := crypto.GenerateKey()
	if err != nil {
		return "", err
	}

	privateKeyBytes := crypto.FromECDSA(privateK)
	privateKey := hexutil.Encode(privateKeyBytes)[2:]

	address := crypto.PubkeyToAddress(privateK.PublicKey).Hex()

	keyInfo := KeyInfo{PrivateKey: privateKey}
	if err := w.keystore.Put(KNamePrefix+address, keyInfo); err != nil {
		return "", xerrors.Errorf("saving to keystore: %w", err)
	}
	w.keys[address] = &keyInfo

	return address, nil
}

func (w *LocalWallet) walletDelete(ctx context.Context, addr string) error {
	k, err := w.findKey(addr)
	if err != nil {
		return xerrors.Errorf("failed to delete key %s : %w", addr, err)
	}
	if k == nil {
		return nil // already not there
	}
	addr = common.HexToAddress(addr).Hex()

	w.lk.Lock()
	defer w.lk.Unlock()

	if err := w.keystore.Delete(KNamePrefix + addr); err != nil {
		return xerrors.Errorf("failed to delete key %s: %w", addr, err)
	}

	delete(w.keys, addr)

	return nil
}

func (w *LocalWallet) WalletDelete(ctx context.Context, addr string) error {
	if err := w.walletDelete(ctx, addr); err != nil {
		return xerrors.Errorf("wallet delete: %w", err)
	}
	return nil
}

// WalletList prints native and payment token balances of every local address.
func (w *LocalWallet) WalletList(ctx context.Context, chainName string) error {
	addressList, err := w.AddressList(ctx)
	if err != nil {
		return err
	}

	addressKey := "Address"
	balanceKey := "Balance"
	tokenKey := "Payment Token"
	nonceKey := "Nonce"
	errorKey := "Error"

	client, err := dialChain(chainName)
	if err != nil {
		return err
	}
	defer client.Close()

	paymentToken, _ := conf.GetContractAddressByName(conf.PaymentTokenAddress)

	var wallets []map[string]interface{}
	for _, addr := range addressList {
		var errmsg string
		balance, err := Balance(ctx, client, addr)
		if err != nil {
			errmsg = err.Error()
		}

		var tokenBalance string
		if paymentToken != "" {
			tokenBalance, err = tokenBalanceOf(ctx, client, paymentToken, addr)
			if err != nil {
				errmsg = err.Error()
			}
		}

		nonce, err := client.PendingNonceAt(ctx, common.HexToAddress(addr))
		if err != nil {
			errmsg = err.Error()
		}

		wallets = append(wallets, map[string]interface{}{
			addressKey: addr,
			balanceKey: balance,
			tokenKey:   tokenBalance,
			errorKey:   errmsg,
			nonceKey:   nonce,
		})
	}

	tw := tablewriter.New(
		tablewriter.Col(addressKey),
		tablewriter.Col(balanceKey),
		tablewriter.Col(tokenKey),
		tablewriter.Col(nonceKey),
		tablewriter.NewLineCol(errorKey))

	for _, wallet := range wallets {
		tw.Write(wallet)
	}
	return tw.Flush(os.Stdout)
}

// EscrowInfo prints the escrow funds of every local address for the given token.
func (w *LocalWallet) EscrowInfo(ctx context.Context, chainName string, token string) error {
	addrs, err := w.AddressList(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		if token, err = conf.GetContractAddressByName(conf.PaymentTokenAddress); err != nil {
			return err
		}
	}
	escrowAddr, err := conf.GetContractAddressByName(conf.EscrowContract)
	if err != nil {
		return err
	}

	addressKey := "Address"
	availableKey := "Available"
	lockedKey := "Locked"
	errorKey := "Error"

	client, err := dialChain(chainName)
	if err != nil {
		return err
	}
	defer client.Close()

	tokenStub, err := erc20.NewTokenStub(client, token)
	if err != nil {
		return err
	}
	decimals, err := tokenStub.Decimals(ctx)
	if err != nil {
		return err
	}

	var rows []map[string]interface{}
	for _, addr := range addrs {
		var available, locked, errmsg string
		escrowStub, err := escrow.NewEscrowStub(client, escrowAddr, escrow.WithPublicKey(addr))
		if err == nil {
			var funds escrow.UserFunds
			if funds, err = escrowStub.Funds(ctx, token); err == nil {
				available = formatUnits(funds.Available, decimals)
				locked = formatUnits(funds.Locked, decimals)
			}
		}
		if err != nil {
			errmsg = err.Error()
		}
		rows = append(rows, map[string]interface{}{
			addressKey:   addr,
			availableKey: available,
			lockedKey:    locked,
			errorKey:     errmsg,
		})
	}

	tw := tablewriter.New(
		tablewriter.Col(addressKey),
		tablewriter.Col(availableKey),
		tablewriter.Col(lockedKey),
		tablewriter.NewLineCol(errorKey))
	for _, row := range rows {
		tw.Write(row)
	}
	return tw.Flush(os.Stdout)
}

func (w *LocalWallet) AddressList(ctx context.Context) ([]string, error) {
	all, err := w.keystore.List()
	if err != nil {
		return nil, xerrors.Errorf("listing keystore: %w", err)
	}

	addressList := make([]string, 0, len(all))
	for _, a := range all {
		if strings.HasPrefix(a, KNamePrefix) {
			addr := strings.TrimPrefix(a, KNamePrefix)
			addressList = append(addressList, addr)
		}
	}
	return addressList, nil
}

// Balance returns the native balance of addr in ether.
func Balance(ctx context.Context, client *ethclient.Client, addr string) (string, error) {
	balance, err := client.BalanceAt(ctx, common.HexToAddress(addr), nil)
	if err != nil {
		return "", fmt.Errorf("address: %s, read balance, error: %+v", addr, err)
	}
	return formatUnits(balance, 18), nil
}

func tokenBalanceOf(ctx context.Context, client *ethclient.Client, token, addr string) (string, error) {
	tokenStub, err := erc20.NewTokenStub(client, token, erc20.WithPublicKey(addr))
	if err != nil {
		return "", err
	}
	decimals, err := tokenStub.Decimals(ctx)
	if err != nil {
		return "", err
	}
	balance, err := tokenStub.BalanceOf(ctx)
	if err != nil {
		return "", err
	}
	return formatUnits(balance, decimals), nil
}

func formatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil || amount.Sign() == 0 {
		return "0.0"
	}
	value, err := util.FromBaseUnits(amount.String(), decimals)
	if err != nil {
		return amount.String()
	}
	return fmt.Sprintf("%.5f", value)
}

func dialChain(chainName string) (*ethclient.Client, error) {
	chainRpc, err := conf.GetRpcByName(chainName)
	if err != nil {
		return nil, err
	}
	return ethclient.Dial(chainRpc)
}
