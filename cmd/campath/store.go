package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/OCAP2/campath/internal/config"
	"github.com/OCAP2/campath/internal/storage"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/urfave/cli/v2"
)

func storeCommand(e *env) *cli.Command {
	nameFlag := func() cli.Flag {
		return &cli.StringFlag{Name: flagName, Aliases: []string{"n"}, Required: true, Usage: "path name in the library"}
	}

	return &cli.Command{
		Name:            "store",
		Usage:           "manage the path library",
		HideHelpCommand: true,
		Subcommands: []*cli.Command{
			{
				Name:  "put",
				Usage: "add a camera path to the library",
				Flags: append([]cli.Flag{
					inFlag(),
					&cli.StringFlag{Name: flagName, Aliases: []string{"n"}, Usage: "path name, defaults to the file name"},
				}, sizeFlags()...),
				Action: e.withStorage(e.storePutAction),
			},
			{
				Name:  "get",
				Usage: "write a stored camera path to a file",
				Flags: append([]cli.Flag{
					nameFlag(),
					&cli.PathFlag{Name: flagOut, Aliases: []string{"o"}, Required: true, Usage: "file to write, format from extension"},
				}, sizeFlags()...),
				Action: e.withStorage(e.storeGetAction),
			},
			{
				Name:   "list",
				Usage:  "list stored camera paths",
				Action: e.withStorage(e.storeListAction),
			},
			{
				Name:   "rm",
				Usage:  "remove a camera path from the library",
				Flags:  []cli.Flag{nameFlag()},
				Action: e.withStorage(e.storeRemoveAction),
			},
		},
	}
}

// withStorage opens the configured backend around action.
func (e *env) withStorage(action func(*cli.Context, storage.Backend) error) cli.ActionFunc {
	return func(c *cli.Context) (err error) {
		cfg := config.GetStorageConfig()
		backend, err := storage.NewBackend(cfg, e.slog, e.dbLog)
		if err != nil {
			return err
		}
		if err := backend.Init(); err != nil {
			return fmt.Errorf("failed to initialize %s storage: %w", cfg.Type, err)
		}
		e.logger.Debug("Storage backend initialized", "type", cfg.Type)

		defer func() {
			if cerr := backend.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("failed to close storage: %w", cerr))
			}
		}()
		return action(c, backend)
	}
}

func (e *env) storePutAction(c *cli.Context, backend storage.Backend) error {
	if err := e.load(c); err != nil {
		return err
	}

	name := c.String(flagName)
	if name == "" {
		in := filepath.Base(c.Path(flagIn))
		name = strings.TrimSuffix(in, filepath.Ext(in))
	}
	p := e.rec.Path(name)
	if err := backend.SavePath(p); err != nil {
		return err
	}
	if f, ok := backend.(storage.Flusher); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.App.Writer, "stored %q (%d poses)\n", name, len(p.Poses))
	return nil
}

func (e *env) storeGetAction(c *cli.Context, backend storage.Backend) error {
	p, err := backend.GetPath(c.String(flagName))
	if err != nil {
		return err
	}
	w, h, err := e.size(c)
	if err != nil {
		return err
	}
	if p.Width > 0 && p.Height > 0 && !c.IsSet(flagWidth) && !c.IsSet(flagHeight) {
		w, h = p.Width, p.Height
	}

	e.rec.SetCameras(p.Poses)
	out := c.Path(flagOut)
	format, err := outputFormat(out, "")
	if err != nil {
		return err
	}
	if err := e.saveAs(out, format, w, h, 1); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %q to %s\n", p.Name, out)
	return nil
}

func (e *env) storeListAction(c *cli.Context, backend storage.Backend) error {
	infos, err := backend.ListPaths()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tPOSES\tLENGTH\tFOVY (DEG)\tFROM\tTO\tCREATED")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.3f\t%.1f..%.1f\t%s\t%s\t%s\n",
			info.Name, info.Source, info.PoseCount, info.Length,
			mgl64.RadToDeg(info.FovMin), mgl64.RadToDeg(info.FovMax),
			formatPoint(info.Start), formatPoint(info.End),
			info.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func (e *env) storeRemoveAction(c *cli.Context, backend storage.Backend) error {
	name := c.String(flagName)
	if err := backend.DeletePath(name); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "removed %q\n", name)
	return nil
}

func formatPoint(v mgl64.Vec3) string {
	return fmt.Sprintf("%.2f,%.2f,%.2f", v[0], v[1], v[2])
}
