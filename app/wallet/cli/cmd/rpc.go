package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

var client = http.Client{Timeout: 10 * time.Second}

// call invokes a JSON-RPC method on the node and decodes the result.
func call(method string, result any, params ...string) error {
	if params == nil {
		params = []string{}
	}

	req := struct {
		JSONRPC string   `json:"jsonrpc"`
		ID      int      `json:"id"`
		Method  string   `json:"method"`
		Params  []string `json:"params"`
	}{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	resp, err := client.Post(fmt.Sprintf("%s/v1/jsonrpc", url), "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", method, resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return err
	}

	if rr.Error != nil {
		return fmt.Errorf("%s: %s (%d)", method, rr.Error.Message, rr.Error.Code)
	}

	if result == nil {
		return nil
	}

	return json.Unmarshal(rr.Result, result)
}
