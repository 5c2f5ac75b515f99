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

	"github.com/zintix-labs/minelab"
	"github.com/zintix-labs/minelab/dto"
)

// Verify POST /v1/verify
//
// 推導為純計算，不需要逾時控制；錯誤分級：
//   - profile 不存在 → 404
//   - InvalidInput / InsufficientEntropy → 400
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	req, err := dto.Decode[dto.VerifyRequest](r)
	if err != nil {
		h.fail(w, "verify decode", err)
		return
	}
	v, err := h.lab.Verify(minelab.VerifyInput{
		Profile:    req.Profile,
		ServerSeed: req.ServerSeed,
		ClientSeed: req.ClientSeed,
		Nonce:      uint64(req.Nonce),
		MineCount:  req.MineCount,
		Side:       req.Side,
		Commitment: req.Commitment,
	})
	if err != nil {
		h.fail(w, "verify", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
