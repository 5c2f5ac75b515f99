// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package v1

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/zintix-labs/minelab"
	"github.com/zintix-labs/minelab/dto"
	"github.com/zintix-labs/minelab/errs"
	"github.com/zintix-labs/minelab/ledger"
)

// CreateRound POST /v1/rounds：回傳承諾值，server seed 不外露。
func (h *Handler) CreateRound(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.RoundRequest](r)
	if err != nil {
		h.fail(w, "round decode", err)
		return
	}
	prof, err := h.lab.Profile(req.Profile)
	if err != nil {
		h.fail(w, "round create", err)
		return
	}
	rd, err := ledger.NewRound(prof.Name, req.ClientSeed, h.now())
	if err != nil {
		h.fail(w, "round create", err)
		return
	}
	if err := h.store.Create(r.Context(), rd); err != nil {
		h.fail(w, "round create", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.RoundResult{Round: rd.Public()})
}

// GetRound GET /v1/rounds?id=
func (h *Handler) GetRound(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if err := uuid.Validate(id); err != nil {
		h.fail(w, "round get", errs.InvalidInputf("round id: %v", err))
		return
	}
	rd, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "round get", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RoundResult{Round: rd.Public()})
}

// NextRound POST /v1/rounds/next：nonce+1；已揭露回 409。
func (h *Handler) NextRound(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.RoundIDRequest](r)
	if err != nil {
		h.fail(w, "round decode", err)
		return
	}
	rd, err := h.store.NextNonce(r.Context(), req.ID)
	if err != nil {
		h.fail(w, "round next", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RoundResult{Round: rd.Public()})
}

// RevealRound POST /v1/rounds/reveal：封存並公開 server seed，附上當前 nonce 的推導與承諾驗證。
func (h *Handler) RevealRound(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.RoundIDRequest](r)
	if err != nil {
		h.fail(w, "round decode", err)
		return
	}
	rd, err := h.store.Reveal(r.Context(), req.ID)
	if err != nil {
		h.fail(w, "round reveal", err)
		return
	}
	v, err := h.lab.Verify(minelab.VerifyInput{
		Profile:    rd.Profile,
		ServerSeed: rd.ServerSeed,
		ClientSeed: rd.ClientSeed,
		Nonce:      rd.Nonce,
		Commitment: rd.Commitment,
	})
	if err != nil {
		h.fail(w, "round reveal", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RevealResult{Round: rd, Verification: v})
}
