// SPDX-License-Identifier: MPL-2.0

// Package pipeline drives one packaging run for a module.
//
// The steps run strictly in sequence: resolve the server framework, generate
// the server-side descriptors, assemble the inner module archive and, in EAR
// mode, wrap it with its libraries into the outer package archive. Fatal
// errors abort the run and leave no partial archive behind; an exclusion
// filter the runner scan cannot handle only disables the deployment
// descriptor.
package pipeline
