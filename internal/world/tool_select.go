package world

import "strings"

// toolFamilies maps block name fragments to the implement that breaks them
// fastest, in priority order.
var toolFamilies = []struct {
	match []string
	tool  string
}{
	{match: []string{"ore", "stone", "cobble", "brick", "basalt"}, tool: "pickaxe"},
	{match: []string{"log", "plank", "wood"}, tool: "axe"},
	{match: []string{"dirt", "sand", "gravel", "grass", "clay"}, tool: "shovel"},
}

// toolKindFor returns the implement kind suited to a block, or "".
func toolKindFor(blockName string) string {
	name := strings.ToLower(blockName)
	for _, f := range toolFamilies {
		for _, m := range f.match {
			if strings.Contains(name, m) {
				return f.tool
			}
		}
	}
	return ""
}

// pickTool selects the inventory item of the given kind, preferring the
// first material listed.
func pickTool(kind string, inventory []ItemStack) (string, bool) {
	if kind == "" {
		return "", false
	}
	for _, material := range []string{"diamond", "iron", "stone", "wood"} {
		for _, it := range inventory {
			n := strings.ToLower(it.Item)
			if it.Count > 0 && strings.Contains(n, material) && isKind(n, kind) {
				return it.Item, true
			}
		}
	}
	for _, it := range inventory {
		n := strings.ToLower(it.Item)
		if it.Count > 0 && isKind(n, kind) {
			return it.Item, true
		}
	}
	return "", false
}

func isKind(item, kind string) bool {
	if kind == "axe" && strings.HasSuffix(item, "pickaxe") {
		return false
	}
	return strings.HasSuffix(item, kind)
}
