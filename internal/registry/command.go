package registry

import "github.com/streamspace-dev/tlcp-client/internal/wire"

// Command-mode key state values, per spec §4.2's ADD/UPDATE/DELETE vocabulary
// on the command field.
const (
	commandAdd    = "ADD"
	commandUpdate = "UPDATE"
	commandDelete = "DELETE"
)

// applyCommandSemantics inspects the key/command fields of a just-
// reconstructed COMMAND-mode update, mutating fields/changed in place when
// the command is DELETE (spec: "all non-key fields appear as changed with
// null value"), and returns a closure the caller runs after releasing the
// registry lock, which tells the sink to spawn or tear down the
// corresponding second-level MERGE subscription. Returning a closure rather
// than calling the sink directly keeps registry's lock scope minimal and
// avoids invoking sink methods (which may themselves re-enter the registry)
// while holding r.mu.
//
// The command field itself is left untouched by the DELETE synthesis
// alongside the key field, matching how every COMMAND client actually
// behaves: a listener checking the command field for "DELETE" needs to see
// that literal value, not a null.
func (r *Registry) applyCommandSemantics(e *entry, subID, itemPos int, fields map[int]wire.FieldValue, changed map[int]bool) func() {
	keyVal, hasKey := fields[e.keyPos]
	cmdVal, hasCmd := fields[e.cmdPos]
	if !hasKey || !hasCmd || keyVal.Null || cmdVal.Null {
		return nil
	}
	key := keyVal.Value
	cmd := cmdVal.Value

	if e.keys[itemPos] == nil {
		e.keys[itemPos] = make(map[string]bool)
	}
	active := e.keys[itemPos][key]

	switch cmd {
	case commandAdd:
		if active {
			return nil
		}
		e.keys[itemPos][key] = true
		return func() { r.sink.CommandKeyAdded(subID, itemPos, key) }
	case commandDelete:
		if !active {
			return nil
		}
		delete(e.keys[itemPos], key)
		for pos := 1; pos <= e.nFields; pos++ {
			if pos == e.keyPos || pos == e.cmdPos {
				continue
			}
			fields[pos] = wire.FieldValue{Null: true}
			changed[pos] = true
		}
		return func() { r.sink.CommandKeyRemoved(subID, itemPos, key) }
	case commandUpdate:
		return nil
	default:
		return nil
	}
}

// SecondLevelError reports a subscription error or lost-updates event on a
// synthesized second-level subscription up to its COMMAND parent, so the
// parent's SubscriptionListener.OnCommandSecondLevel* methods fire instead
// of a plain subscription error nobody is listening for directly.
func (r *Registry) SecondLevelError(subID, itemPos int, key string, code int, message string) {
	r.sink.CommandSecondLevelError(subID, itemPos, key, code, message)
}
