package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blueberrycongee/recall/internal/embedcache"
	"github.com/blueberrycongee/recall/internal/intelligence"
	"github.com/blueberrycongee/recall/pkg/types"
)

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "recall",
		Short:         "Ask questions about past LLM conversations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to config.yaml")
	pf.StringVar(&flags.userID, "user", "", "apply this user's provider overrides")
	pf.StringVarP(&flags.provider, "provider", "p", "", "chat provider (gemini, groq, cohere)")
	pf.StringVarP(&flags.model, "model", "m", "", "chat model override")
	pf.StringVar(&flags.apiKey, "api-key", "", "API key for the chosen provider")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(
		newProvidersCmd(&flags),
		newChatCmd(&flags),
		newSummarizeCmd(&flags),
		newTopicsCmd(&flags),
		newSentimentCmd(&flags),
		newQueryCmd(&flags),
		newRelatedCmd(&flags),
		newCacheCmd(&flags),
	)
	return root
}

// withApp builds the app for one command run and closes it afterwards.
func withApp(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, *flags)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(ctx, a)
}

func newProvidersCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List chat providers, their availability and the recommended one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				prefs, err := a.preferences(ctx)
				if err != nil {
					return err
				}
				out := struct {
					Providers   []types.ProviderDescriptor `json:"providers"`
					Recommended string                     `json:"recommended"`
				}{
					Providers:   a.registry.Descriptors(prefs),
					Recommended: a.registry.Recommended(prefs),
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "test [provider]",
		Short: "Send a one-line test prompt to a provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				flags.provider = args[0]
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				router, err := a.router(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), router.Test(ctx))
			})
		},
	})
	return cmd
}

func newChatCmd(flags *globalFlags) *cobra.Command {
	var system string
	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send a single prompt to the chat provider",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				router, err := a.router(ctx)
				if err != nil {
					return err
				}
				var msgs []types.Message
				if system != "" {
					msgs = append(msgs, types.SystemMessage(system))
				}
				msgs = append(msgs, types.UserMessage(strings.Join(args, " ")))
				return writeJSON(cmd.OutOrStdout(), router.Chat(ctx, msgs))
			})
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "system instruction")
	return cmd
}

// messageCmd builds a command that reads a conversation's messages from
// --file (or stdin) and prints the result of run.
func messageCmd(flags *globalFlags, use, short string, run func(ctx context.Context, svc *intelligence.Service, msgs []types.Message) any) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readInput(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			msgs, err := parseMessages(data)
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				svc, err := a.intelligenceService(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), run(ctx, svc, msgs))
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON messages or conversation; - for stdin")
	return cmd
}

func newSummarizeCmd(flags *globalFlags) *cobra.Command {
	var depth string
	cmd := messageCmd(flags, "summarize", "Summarize a conversation",
		func(ctx context.Context, svc *intelligence.Service, msgs []types.Message) any {
			return svc.Summarize(ctx, msgs, intelligence.ParseDepth(depth))
		})
	cmd.Flags().StringVar(&depth, "depth", string(intelligence.DepthDetailed), "basic, detailed or comprehensive")
	return cmd
}

func newTopicsCmd(flags *globalFlags) *cobra.Command {
	var maxTopics int
	cmd := messageCmd(flags, "topics", "Extract the main topics of a conversation",
		func(ctx context.Context, svc *intelligence.Service, msgs []types.Message) any {
			return svc.ExtractTopics(ctx, msgs, maxTopics)
		})
	cmd.Flags().IntVar(&maxTopics, "max", intelligence.DefaultMaxTopics, "maximum number of topics")
	return cmd
}

func newSentimentCmd(flags *globalFlags) *cobra.Command {
	return messageCmd(flags, "sentiment", "Analyze the sentiment of a conversation",
		func(ctx context.Context, svc *intelligence.Service, msgs []types.Message) any {
			return svc.AnalyzeSentiment(ctx, msgs)
		})
}

// conversationsCmd builds a command that takes free text as arguments and a
// list of past conversations from --conversations.
func conversationsCmd(flags *globalFlags, use, short string, defaultTopK int,
	run func(ctx context.Context, svc *intelligence.Service, text string, convs []types.Conversation, topK int) any,
) *cobra.Command {
	var (
		file string
		topK int
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			convs, err := parseConversations(data)
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				svc, err := a.intelligenceService(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), run(ctx, svc, strings.Join(args, " "), convs, topK))
			})
		},
	}
	cmd.Flags().StringVar(&file, "conversations", "-", "JSON list of past conversations; - for stdin")
	cmd.Flags().IntVarP(&topK, "top-k", "k", defaultTopK, "maximum number of related conversations")
	return cmd
}

func newQueryCmd(flags *globalFlags) *cobra.Command {
	return conversationsCmd(flags, "query [question]", "Answer a question from past conversations", intelligence.DefaultTopK,
		func(ctx context.Context, svc *intelligence.Service, q string, convs []types.Conversation, topK int) any {
			return svc.QueryConversations(ctx, q, convs, topK)
		})
}

func newRelatedCmd(flags *globalFlags) *cobra.Command {
	return conversationsCmd(flags, "related [text]", "Suggest past conversations related to some text", intelligence.DefaultSuggestions,
		func(ctx context.Context, svc *intelligence.Service, text string, convs []types.Conversation, topK int) any {
			return svc.SuggestRelated(ctx, text, convs, topK)
		})
}

func newCacheCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the embedding cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print the number of cached embeddings and this process's counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				cache, err := a.embeddingCache(ctx)
				if err != nil {
					return err
				}
				if cache == nil {
					return errors.New("embedding cache is disabled")
				}
				entries, err := cache.Len(ctx)
				if err != nil {
					return err
				}
				out := struct {
					Backend string           `json:"backend"`
					Entries int64            `json:"entries"`
					Stats   embedcache.Stats `json:"stats"`
				}{
					Backend: a.cfg.Cache.Backend,
					Entries: entries,
					Stats:   cache.Stats(),
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	})
	return cmd
}
