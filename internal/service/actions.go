package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/asterdex/astergate/internal/model"
	"github.com/asterdex/astergate/internal/signer"
)

type actionEntry struct {
	newAction func() model.Action
	endpoint  model.Endpoint
}

var catalogue = map[string]actionEntry{
	"ApproveAgent": {
		newAction: func() model.Action { return &model.ApproveAgent{} },
		endpoint:  model.Endpoint{Method: http.MethodPost, Path: "/fapi/v3/approveAgent"},
	},
	"ApproveBuilder": {
		newAction: func() model.Action { return &model.ApproveBuilder{} },
		endpoint:  model.Endpoint{Method: http.MethodPost, Path: "/fapi/v3/approveBuilder"},
	},
	"UpdateBuilder": {
		newAction: func() model.Action { return &model.UpdateBuilder{} },
		endpoint:  model.Endpoint{Method: http.MethodPost, Path: "/fapi/v3/updateBuilder"},
	},
	"UpdateAgent": {
		newAction: func() model.Action { return &model.UpdateAgent{} },
		endpoint:  model.Endpoint{Method: http.MethodPost, Path: "/fapi/v3/updateAgent"},
	},
	"DelAgent": {
		newAction: func() model.Action { return &model.DelAgent{} },
		endpoint:  model.Endpoint{Method: http.MethodDelete, Path: "/fapi/v3/agent"},
	},
	"DelBuilder": {
		newAction: func() model.Action { return &model.DelBuilder{} },
		endpoint:  model.Endpoint{Method: http.MethodDelete, Path: "/fapi/v3/builder"},
	},
	"PlaceOrder": {
		newAction: func() model.Action { return &model.PlaceOrder{} },
		endpoint:  model.Endpoint{Method: http.MethodPost, Path: "/fapi/v3/order"},
	},
}

// ActionNames lists the supported primary types, sorted.
func ActionNames() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsKnownAction reports whether primaryType names a supported action.
func IsKnownAction(primaryType string) bool {
	_, ok := catalogue[primaryType]
	return ok
}

// EndpointFor returns where a signed primaryType bundle is submitted.
func EndpointFor(primaryType string) (model.Endpoint, bool) {
	entry, ok := catalogue[primaryType]
	return entry.endpoint, ok
}

// DecodeAction parses raw into the request struct for primaryType and
// validates it. Unknown fields are rejected so a misspelled field is not
// silently left out of the signed message.
func DecodeAction(primaryType string, raw []byte) (model.Action, error) {
	entry, ok := catalogue[primaryType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, primaryType)
	}
	action := entry.newAction()
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(action); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
	}
	if err := action.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	return action, nil
}

// ActionParams lays out the full signed parameter set of action: its own
// fields, asterChain when set, then user and nonce.
func ActionParams(action model.Action, asterChain, user string, nonce int64) *signer.Params {
	params := action.Fields()
	if asterChain != "" {
		params.Set("asterChain", signer.Text(asterChain))
	}
	params.Set("user", signer.Text(user))
	params.Set("nonce", signer.Int(nonce))
	return params
}
