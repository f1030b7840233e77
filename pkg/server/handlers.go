/*
Copyright 2015 All rights reserved.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package server

import (
	"net/http"
	"strings"

	"github.com/gatewarden/gatewarden/pkg/constant"
	"github.com/gatewarden/gatewarden/pkg/models"
	"github.com/gatewarden/gatewarden/pkg/utils"
)

// emptyHandler is responsible for doing nothing.
func emptyHandler(_ http.ResponseWriter, _ *http.Request) {}

// healthHandler is a health check handler for the service.
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(constant.VersionHeader, GetVersion())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

// allowedHandler terminates a granted auth sub-request. The fronting proxy
// reads the 2xx as permission to forward, and copies the identity response
// headers onto the upstream request.
func allowedHandler(wrt http.ResponseWriter, req *http.Request) {
	scope, assertOk := req.Context().Value(constant.ContextScopeName).(*models.RequestScope)
	if assertOk && scope.Identity != nil {
		user := scope.Identity
		headers := wrt.Header()
		headers.Set(constant.HeaderXAuthUsername, user.Name)
		headers.Set(constant.HeaderXAuthGroups, strings.Join(user.Groups, ","))
		for claim, value := range user.Claims {
			headers.Set(utils.ToHeader(claim), value)
		}
	}

	wrt.WriteHeader(http.StatusOK)
	_, _ = wrt.Write([]byte("OK\n"))
}
