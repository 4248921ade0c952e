package cli

// This file contains the testinfo command resolving test identifiers against
// a test APK.

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tongsgo/tongs/model"
	"github.com/tongsgo/tongs/testinfo"
)

func (a *App) testInfo(ctx *cli.Context) error {
	apk := ctx.String("apk")
	if apk == "" {
		apk = a.cfg.Instrumentation.APK
	}
	if apk == "" {
		return errors.New("no APK given, use --apk or instrumentation.apk in the config")
	}
	if ctx.NArg() == 0 {
		return errors.New("expected at least one test identifier (class#method)")
	}

	ids := make([]model.TestIdentifier, 0, ctx.NArg())
	for _, arg := range ctx.Args().Slice() {
		id, err := model.ParseTestIdentifier(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	infos, err := testinfo.NewReader(a.logger).ReadAPK(apk, ids)
	if err != nil {
		var noMatch *testinfo.NoMatchingMethodError
		if errors.As(err, &noMatch) {
			for _, id := range noMatch.Tests {
				a.logger.Error().Str("test", id.String()).Msg("No matching test method")
			}
		}
		return err
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(infos); err != nil {
		return fmt.Errorf("failed to encode test info: %w", err)
	}
	return nil
}
