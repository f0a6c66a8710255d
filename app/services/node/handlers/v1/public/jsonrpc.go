package public

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/open-protocol/ledger/business/web/errs"
	"github.com/open-protocol/ledger/foundation/blockchain/database"
	"github.com/open-protocol/ledger/foundation/blockchain/state"
	"github.com/open-protocol/ledger/foundation/web"
)

// JSONRPC serves the JSON-RPC 2.0 endpoint. Protocol and method errors are
// reported in the response body with a 200 status.
func (h Handlers) JSONRPC(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req rpcRequest
	if err := web.Decode(r, &req); err != nil {
		code := errs.CodeParse
		if web.IsFieldErrors(err) {
			code = errs.CodeInvalidRequest
		}
		resp := rpcResponse{
			JSONRPC: rpcVersion,
			ID:      null,
			Error:   errs.NewRPC(code, err),
		}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}

	h.Log.Infow("jsonrpc", "traceid", v.TraceID, "method", req.Method, "params", len(req.Params))

	result, rpcErr := h.dispatch(req.Method, req.Params)

	if len(req.ID) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	resp := rpcResponse{
		JSONRPC: rpcVersion,
		ID:      req.ID,
	}

	switch {
	case rpcErr != nil:
		resp.Error = rpcErr
	case result == nil:
		resp.Result = null
	default:
		resp.Result = result
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// dispatch runs the named method.
func (h Handlers) dispatch(method string, raw []json.RawMessage) (any, *errs.RPCError) {
	switch method {
	case "txpool_transact_raw":
		params, err := stringParams(raw, 1)
		if err != nil {
			return nil, err
		}

		hash, serr := h.State.SubmitRawTransaction(params[0])
		if serr != nil {
			return nil, errs.NewRPC(errs.CodeRejected, serr)
		}
		return hash, nil

	case "contract_create":
		params, err := stringParams(raw, 2)
		if err != nil {
			return nil, err
		}

		root, serr := h.State.DeployContract(params[0], params[1])
		if serr != nil {
			return nil, errs.NewRPC(errs.CodeRejected, serr)
		}
		return contract{Address: params[0], StateRoot: root}, nil

	case "state_get_account":
		params, err := stringParams(raw, 1)
		if err != nil {
			return nil, err
		}

		acct, serr := h.State.QueryAccount(params[0])
		switch {
		case errors.Is(serr, state.ErrAccountNotFound):
			return nil, nil
		case serr != nil:
			return nil, errs.NewRPC(errs.CodeRejected, serr)
		}

		act, serr := toAccount(acct, h.name(acct.PublicKey))
		if serr != nil {
			return nil, errs.NewRPC(errs.CodeInternal, serr)
		}
		return act, nil

	case "block_latest":
		if _, err := stringParams(raw, 0); err != nil {
			return nil, err
		}
		return database.NewBlockData(h.State.RetrieveLatestBlock()), nil

	case "txpool_pending":
		if _, err := stringParams(raw, 0); err != nil {
			return nil, err
		}
		return h.pending(), nil
	}

	return nil, errs.NewRPC(errs.CodeMethodNotFound, fmt.Errorf("method %q not found", method))
}

// pending lists the mempool in proposal order.
func (h Handlers) pending() []tx {
	mempool := h.State.QueryMempool()

	trans := make([]tx, 0, len(mempool))
	for _, tran := range mempool {
		hash, err := tran.HashHex()
		if err != nil {
			continue
		}

		trans = append(trans, tx{
			Hash:     hash,
			From:     tran.From,
			FromName: h.name(tran.From),
			To:       tran.To,
			ToName:   h.name(tran.To),
			Value:    tran.Value,
			Nonce:    tran.Nonce,
			Input:    tran.Input,
			Sig:      tran.Signature,
		})
	}

	return trans
}

// name returns the wallet name of a known account.
func (h Handlers) name(pub string) string {
	if h.NS == nil {
		return ""
	}

	if name := h.NS.Lookup(pub); name != pub {
		return name
	}
	return ""
}

// stringParams decodes exactly n string parameters.
func stringParams(raw []json.RawMessage, n int) ([]string, *errs.RPCError) {
	if len(raw) != n {
		return nil, errs.NewRPC(errs.CodeInvalidParams, fmt.Errorf("expected %d params, got %d", n, len(raw)))
	}

	params := make([]string, n)
	for i, p := range raw {
		if err := json.Unmarshal(p, &params[i]); err != nil {
			return nil, errs.NewRPC(errs.CodeInvalidParams, fmt.Errorf("param %d: %w", i, err))
		}
	}

	return params, nil
}
