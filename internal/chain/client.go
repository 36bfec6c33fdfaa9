package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/dexgate/dexgate/internal/pkg/apperrors"
	"github.com/dexgate/dexgate/internal/signer"
)

const erc20ABIJSON = `[
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// MaxUint256 is used for unlimited approvals when the sell amount is unknown.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

var erc20ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid erc20 abi: %v", err))
	}
	erc20ABI = parsed
}

// TxRequest carries the settlement transaction fields taken from a quote.
type TxRequest struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	Gas      uint64
	GasPrice *big.Int
}

// Client wraps an RPC connection with the custodial wallet. All mutating
// calls block until the transaction is included.
type Client struct {
	eth     *ethclient.Client
	wallet  *signer.Wallet
	chainID *big.Int
}

func Dial(ctx context.Context, rpcURL string, wallet *signer.Wallet) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}
	return &Client{eth: eth, wallet: wallet, chainID: chainID}, nil
}

func (c *Client) ChainID() int64 {
	return c.chainID.Int64()
}

// RequireChain rejects settlement attempts targeting a different chain than
// the connected RPC endpoint.
func (c *Client) RequireChain(chainID int64) error {
	if c.chainID.Int64() != chainID {
		return apperrors.New(apperrors.ErrNetworkMismatch,
			fmt.Sprintf("gateway wallet is on chain %d, request targets chain %d", c.chainID.Int64(), chainID), nil)
	}
	return nil
}

func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	out, err := c.eth.CallContract(ctx, callMsg(token, data), nil)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(out), nil
}

func (c *Client) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", account)
	if err != nil {
		return nil, err
	}
	out, err := c.eth.CallContract(ctx, callMsg(token, data), nil)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(out), nil
}

// ApproveERC20 approves the spender and waits for inclusion. Approval is a
// blocking prerequisite of settlement, never run in parallel with it.
func (c *Client) ApproveERC20(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	if amount == nil {
		amount = MaxUint256
	}
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return common.Hash{}, apperrors.New(apperrors.ErrApprovalFailed, "failed to encode approve call", err)
	}

	tx, err := c.sendTx(ctx, &TxRequest{To: token, Data: data, Value: new(big.Int)})
	if err != nil {
		return common.Hash{}, apperrors.New(apperrors.ErrApprovalFailed, "approval transaction failed", err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return tx.Hash(), apperrors.New(apperrors.ErrApprovalFailed, "approval not mined", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), apperrors.New(apperrors.ErrApprovalFailed, "approval transaction reverted", nil)
	}
	return tx.Hash(), nil
}

// SendSettlement submits the settlement transaction and waits for inclusion.
func (c *Client) SendSettlement(ctx context.Context, req *TxRequest) (common.Hash, error) {
	tx, err := c.sendTx(ctx, req)
	if err != nil {
		return common.Hash{}, apperrors.New(apperrors.ErrSubmissionFailed, "settlement transaction failed", err)
	}
	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return tx.Hash(), apperrors.New(apperrors.ErrSettlementFailed, "settlement not mined", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), apperrors.New(apperrors.ErrSettlementFailed, "settlement transaction reverted", nil)
	}
	return tx.Hash(), nil
}

func (c *Client) sendTx(ctx context.Context, req *TxRequest) (*types.Transaction, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, c.wallet.Address())
	if err != nil {
		return nil, err
	}

	gasPrice := req.GasPrice
	if gasPrice == nil || gasPrice.Sign() == 0 {
		gasPrice, err = c.eth.SuggestGasPrice(ctx)
		if err != nil {
			return nil, err
		}
	}

	gas := req.Gas
	if gas == 0 {
		to := req.To
		gas, err = c.eth.EstimateGas(ctx, callMsgFull(c.wallet.Address(), to, req.Data, req.Value, gasPrice))
		if err != nil {
			return nil, err
		}
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	to := req.To
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     req.Data,
	})

	signed, err := c.wallet.SignTx(tx, c.chainID)
	if err != nil {
		return nil, err
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, err
	}
	return signed, nil
}

func callMsg(to common.Address, data []byte) ethereum.CallMsg {
	return ethereum.CallMsg{To: &to, Data: data}
}

func callMsgFull(from, to common.Address, data []byte, value, gasPrice *big.Int) ethereum.CallMsg {
	return ethereum.CallMsg{
		From:     from,
		To:       &to,
		Data:     data,
		Value:    value,
		GasPrice: gasPrice,
	}
}
