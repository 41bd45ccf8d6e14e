// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.
//
// This file is derived from params/bootnodes.go (2018/06/04).
// Modified and improved for the QNet development.

package params

import (
	"os"
	"strconv"
	"strings"
)

// GenesisBootstrapIDMin and GenesisBootstrapIDMax bound the QNET_BOOTSTRAP_ID
// range that marks a Genesis node (spec.md §6: "001-005 marks Genesis node").
const (
	GenesisBootstrapIDMin = 1
	GenesisBootstrapIDMax = 5
)

// IsGenesisBootstrapID reports whether the QNET_BOOTSTRAP_ID environment
// variable names one of the five well-known Genesis Super nodes.
func IsGenesisBootstrapID() bool {
	raw := os.Getenv("QNET_BOOTSTRAP_ID")
	if raw == "" {
		return false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return false
	}
	return id >= GenesisBootstrapIDMin && id <= GenesisBootstrapIDMax
}

// GenesisNodes parses the comma-separated QNET_GENESIS_NODES environment
// variable into a list of bootstrap peer addresses.
func GenesisNodes() []string {
	raw := os.Getenv("QNET_GENESIS_NODES")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	nodes := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			nodes = append(nodes, p)
		}
	}
	return nodes
}

// NodeType identifies a node's participation tier (spec.md §3 NodeType).
type NodeType int

const (
	NodeTypeLight NodeType = iota
	NodeTypeFull
	NodeTypeSuper
)

func ParseNodeType(s string) (NodeType, bool) {
	switch strings.ToLower(s) {
	case "light":
		return NodeTypeLight, true
	case "full":
		return NodeTypeFull, true
	case "super":
		return NodeTypeSuper, true
	default:
		return NodeTypeLight, false
	}
}

func (t NodeType) String() string {
	switch t {
	case NodeTypeLight:
		return "light"
	case NodeTypeFull:
		return "full"
	case NodeTypeSuper:
		return "super"
	default:
		return "unknown"
	}
}

// Region identifies the CLI --region flag's value (spec.md §6 CLI).
type Region string

const (
	RegionNA      Region = "na"
	RegionEU      Region = "eu"
	RegionAsia    Region = "asia"
	RegionSA      Region = "sa"
	RegionAfrica  Region = "africa"
	RegionOceania Region = "oceania"
)

func ValidRegion(r string) bool {
	switch Region(strings.ToLower(r)) {
	case RegionNA, RegionEU, RegionAsia, RegionSA, RegionAfrica, RegionOceania:
		return true
	default:
		return false
	}
}
