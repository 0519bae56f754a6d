package vaultcli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// DataCommands returns put, get, delete, list, find, and namespace, per
// spec.md §6.
func DataCommands() []*cli.Command {
	return []*cli.Command{putCommand(), getCommand(), deleteCommand(), listCommand(), findCommand(), namespaceCommand()}
}

func putCommand() *cli.Command {
	return &cli.Command{
		Name:      "put",
		Usage:     "Upsert a key/value pair",
		ArgsUsage: "<key> <value>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 2 {
				return Emit(cmd, "put", nil, "", fmt.Errorf("usage: put <key> <value>"))
			}
			h, err := OpenAndUnlock(ctx, cmd)
			if err != nil {
				return Emit(cmd, "put", nil, "", err)
			}
			defer h.Close()
			key, value := args.Get(0), args.Get(1)
			err = h.Vault.Put(ctx, key, []byte(value))
			return Emit(cmd, "put", map[string]string{"key": key}, "OK", err)
		},
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch a key's decrypted value",
		ArgsUsage: "<key>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return Emit(cmd, "get", nil, "", fmt.Errorf("usage: get <key>"))
			}
			h, err := OpenAndUnlock(ctx, cmd)
			if err != nil {
				return Emit(cmd, "get", nil, "", err)
			}
			defer h.Close()
			key := args.Get(0)
			value, ok, err := h.Vault.Get(ctx, key)
			if err != nil {
				return Emit(cmd, "get", nil, "", err)
			}
			if !ok {
				return Emit(cmd, "get", nil, "", NotFound(key))
			}
			return Emit(cmd, "get", map[string]string{"key": key, "value": string(value)}, string(value), nil)
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Idempotently remove a key",
		ArgsUsage: "<key>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return Emit(cmd, "delete", nil, "", fmt.Errorf("usage: delete <key>"))
			}
			h, err := OpenAndUnlock(ctx, cmd)
			if err != nil {
				return Emit(cmd, "delete", nil, "", err)
			}
			defer h.Close()
			key := args.Get(0)
			err = h.Vault.Delete(ctx, key)
			return Emit(cmd, "delete", map[string]string{"key": key}, "OK", err)
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Stream all keys",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			h, err := OpenAndUnlock(ctx, cmd)
			if err != nil {
				return Emit(cmd, "list", nil, "", err)
			}
			defer h.Close()
			stream, err := h.Vault.List(ctx)
			if err != nil {
				return Emit(cmd, "list", nil, "", err)
			}
			keys := stream.Collect()
			line := ""
			for i, k := range keys {
				if i > 0 {
					line += "\n"
				}
				line += k
			}
			return Emit(cmd, "list", keys, line, nil)
		},
	}
}

func findCommand() *cli.Command {
	return &cli.Command{
		Name:      "find",
		Usage:     "Stream (key, value) pairs whose keys match a regex",
		ArgsUsage: "<pattern>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return Emit(cmd, "find", nil, "", fmt.Errorf("usage: find <pattern>"))
			}
			h, err := OpenAndUnlock(ctx, cmd)
			if err != nil {
				return Emit(cmd, "find", nil, "", err)
			}
			defer h.Close()
			stream, err := h.Vault.Find(ctx, args.Get(0))
			if err != nil {
				return Emit(cmd, "find", nil, "", err)
			}
			found := stream.Collect()
			type pair struct {
				Key   string `json:"key"`
				Value string `json:"value"`
			}
			pairs := make([]pair, 0, len(found))
			line := ""
			for i, f := range found {
				pairs = append(pairs, pair{Key: f.Key, Value: string(f.Value)})
				if i > 0 {
					line += "\n"
				}
				line += f.Key + "=" + string(f.Value)
			}
			return Emit(cmd, "find", pairs, line, nil)
		},
	}
}

func namespaceCommand() *cli.Command {
	return &cli.Command{
		Name:  "namespace",
		Usage: "Namespaced put/get/list",
		Commands: []*cli.Command{
			{
				Name:      "put",
				Usage:     "Upsert a key/value pair under a namespace",
				ArgsUsage: "<namespace> <key> <value>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					args := cmd.Args()
					if args.Len() != 3 {
						return Emit(cmd, "namespace put", nil, "", fmt.Errorf("usage: namespace put <namespace> <key> <value>"))
					}
					h, err := OpenAndUnlock(ctx, cmd)
					if err != nil {
						return Emit(cmd, "namespace put", nil, "", err)
					}
					defer h.Close()
					ns, key, value := args.Get(0), args.Get(1), args.Get(2)
					err = h.Vault.PutWithNamespace(ctx, ns, key, []byte(value))
					return Emit(cmd, "namespace put", map[string]string{"namespace": ns, "key": key}, "OK", err)
				},
			},
			{
				Name:      "get",
				Usage:     "Fetch a namespaced key's decrypted value",
				ArgsUsage: "<namespace> <key>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					args := cmd.Args()
					if args.Len() != 2 {
						return Emit(cmd, "namespace get", nil, "", fmt.Errorf("usage: namespace get <namespace> <key>"))
					}
					h, err := OpenAndUnlock(ctx, cmd)
					if err != nil {
						return Emit(cmd, "namespace get", nil, "", err)
					}
					defer h.Close()
					ns, key := args.Get(0), args.Get(1)
					value, ok, err := h.Vault.Get(ctx, ns+"/"+key)
					if err != nil {
						return Emit(cmd, "namespace get", nil, "", err)
					}
					if !ok {
						return Emit(cmd, "namespace get", nil, "", NotFound(ns+"/"+key))
					}
					return Emit(cmd, "namespace get", map[string]string{"namespace": ns, "key": key, "value": string(value)}, string(value), nil)
				},
			},
			{
				Name:      "list",
				Usage:     "Stream all keys under a namespace",
				ArgsUsage: "<namespace>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					args := cmd.Args()
					if args.Len() != 1 {
						return Emit(cmd, "namespace list", nil, "", fmt.Errorf("usage: namespace list <namespace>"))
					}
					h, err := OpenAndUnlock(ctx, cmd)
					if err != nil {
						return Emit(cmd, "namespace list", nil, "", err)
					}
					defer h.Close()
					ns := args.Get(0)
					stream, err := h.Vault.Find(ctx, "^"+ns+"/")
					if err != nil {
						return Emit(cmd, "namespace list", nil, "", err)
					}
					found := stream.Collect()
					keys := make([]string, 0, len(found))
					line := ""
					for i, f := range found {
						keys = append(keys, f.Key)
						if i > 0 {
							line += "\n"
						}
						line += f.Key
					}
					return Emit(cmd, "namespace list", keys, line, nil)
				},
			},
		},
	}
}
