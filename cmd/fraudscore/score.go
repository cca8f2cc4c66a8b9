package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rushteam/fraudkit/config"
	"github.com/rushteam/fraudkit/core"
)

func scoreCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one transaction read from stdin",
		Long: `Reads one JSON request {"modelName", "features", "featureOrder"} from stdin
(or --input) and writes exactly one JSON object to stdout.

The exit status is 0 for results and scoring errors alike; logs go to stderr.`,
		Args: cobra.NoArgs,
		// 配置在请求通过校验后才加载，加载失败也要输出 JSON
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					log.Error().Err(err).Str("input", input).Msg("open input failed")
					return writeResponse(cmd.OutOrStdout(), core.Failure(core.MessageParseFailed, err))
				}
				defer f.Close()
				in = f
			}
			return score(cmd.Context(), loadConfig, in, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "read the request from a file instead of stdin")
	return cmd
}

// score 读取一条请求并写出一个 JSON 对象。只有写 out 失败时才返回错误。
// 解析与必填校验在加载配置和产物之前完成，不合法的请求不会触碰磁盘。
func score(ctx context.Context, load func() (config.Config, error), in io.Reader, out io.Writer) error {
	req, err := core.DecodeScoreRequest(in)
	if err != nil {
		log.Warn().Err(err).Msg("parse request failed")
		return writeResponse(out, core.Failure(core.MessageParseFailed, err))
	}
	if err := core.ValidateRequest(req); err != nil {
		log.Warn().Err(err).Str("model", req.ModelName).Msg("invalid request")
		return writeResponse(out, core.ErrorResponse(req.ModelName, err))
	}

	c, err := load()
	if err != nil {
		log.Error().Err(err).Msg("load config failed")
		return writeResponse(out, core.ErrorResponse(req.ModelName, err))
	}

	// 一次性调用不需要产物缓存
	c.Cache = false
	rt, err := config.Build(ctx, c)
	if err != nil {
		log.Error().Err(err).Msg("build scorer failed")
		return writeResponse(out, core.ErrorResponse(req.ModelName, err))
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn().Err(err).Msg("close runtime failed")
		}
	}()

	return writeResponse(out, rt.Scorer.Score(ctx, req))
}

func writeResponse(out io.Writer, resp core.Response) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}
