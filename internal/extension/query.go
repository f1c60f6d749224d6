package extension

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ScopePath is the chain of custom elements, each inside the previous one's
// shadow root, that leads from the document to one extension card.
var ScopePath = []string{"extensions-manager", "extensions-item-list", "extensions-item"}

// NameSelector locates the display name inside a card's shadow root.
const NameSelector = "#name-and-version"

const queryTemplate = `(() => {
  const path = %s;
  let nodes = [document];
  for (let i = 0; i < path.length; i++) {
    const next = [];
    for (const n of nodes) {
      const root = i === 0 ? n : n.shadowRoot;
      if (!root) continue;
      next.push(...root.querySelectorAll(path[i]));
    }
    nodes = next;
  }
  return nodes.map((el) => {
    const label = el.shadowRoot ? el.shadowRoot.querySelector(%s) : null;
    return {id: el.id || "", name: label ? label.textContent : ""};
  });
})()`

// Query builds a script that descends through path, one shadow root per step,
// and returns [{id, name}] for every element matched by the last step. name is
// the raw text of nameSelector inside that element's shadow root.
func Query(path []string, nameSelector string) string {
	p, _ := json.Marshal(path)
	n, _ := json.Marshal(nameSelector)
	return fmt.Sprintf(queryTemplate, p, n)
}

// Predicate selects an extension by display name.
type Predicate func(name string) bool

// NameContains matches names containing substr.
func NameContains(substr string) Predicate {
	return func(name string) bool {
		return strings.Contains(name, substr)
	}
}

// FirstMatch returns the first item accepted by pred and how many items
// matched in total.
func FirstMatch(items []Identity, pred Predicate) (Identity, int) {
	var (
		first Identity
		n     int
	)
	for _, it := range items {
		if it.ID == "" || !pred(it.Name) {
			continue
		}
		if n == 0 {
			first = it
		}
		n++
	}
	return first, n
}
