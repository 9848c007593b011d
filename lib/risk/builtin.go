// Copyright 2026 The Deckhand Authors
// SPDX-License-Identifier: Apache-2.0

package risk

// Built-in command pattern tables. All patterns compile
// case-insensitively. Users extend (never replace) these via settings.

var builtinBashCritical = []string{
	`\brm\s+.*-[^\s]*r`,              // rm -rf, rm -r, rm -fr, ...
	`\brm\s+-rf\b`,                   // explicit rm -rf
	`\bsudo\b`,                       // any sudo
	`\bchmod\s+777\b`,                // chmod 777
	`\bchmod\s+-R\b`,                 // recursive chmod
	`\bmkfs\b`,                       // format filesystem
	`\bdd\s+`,                        // disk dump
	`\bgit\s+push\s+.*--force`,       // git push --force
	`\bgit\s+push\s+-f\b`,            // git push -f
	`\bgit\s+reset\s+--hard`,         // git reset --hard
	`\bgit\s+clean\s+-[^\s]*f`,       // git clean -f
	`\bdocker\s+(rm|rmi)\b`,          // docker destructive
	`\bdocker\s+system\s+prune`,      // docker system prune
	`\bkubectl\s+delete\b`,           // k8s delete
	`DROP\s+(TABLE|DATABASE)`,        // SQL destructive
	`\b(shutdown|reboot|halt|poweroff)\b`, // system control
	`\bcurl\b.*\|\s*(sudo\s+)?bash`,  // curl pipe to shell
	`\bwget\b.*\|\s*(sudo\s+)?bash`,  // wget pipe to shell
	`>\s*/dev/sd[a-z]`,               // write to raw device
}

var builtinBashHigh = []string{
	`\brm\b`,              // any rm (non-recursive)
	`\bgit\s+push\b`,      // git push (non-force)
	`\bgit\s+checkout\s+\.`, // discard working tree
	`\bgit\s+restore\b`,
	`\bgit\s+stash\s+drop`,
	`\bnpm\s+publish\b`,
	`\bpip\s+install\b`,
	`\bcurl\b`, // network egress
	`\bwget\b`,
	`\bmv\b`,
	`\bchmod\b`, // non-777
	`\bchown\b`,
}

var builtinBashLow = []string{
	`^\s*(ls|cat|head|tail|wc|echo|pwd|whoami|date|which|type|file|stat)\b`,
	`^\s*(grep|rg|find|fd|tree|du|df)\b`,
	`^\s*(git\s+(status|log|diff|show))\b`,
	`^\s*(npm\s+test|npm\s+run\s+test)\b`,
	`^\s*(npx\s+jest|npx\s+vitest)\b`,
	`^\s*(uv\s+run\s+(pytest|ruff))\b`,
	`^\s*(cargo\s+(test|check))\b`,
	`^\s*(python|python3)\s+-m\s+pytest\b`,
}

// BuiltinCounts reports the number of built-in command rules per
// level, for the --check-config report.
func BuiltinCounts() map[Level]int {
	return map[Level]int{
		Critical: len(builtinBashCritical),
		High:     len(builtinBashHigh),
		Low:      len(builtinBashLow),
	}
}
