package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"podgraph/backend/internal/graph"
	"podgraph/backend/internal/rdf"
	"podgraph/backend/internal/vocab"
	"podgraph/backend/pkg/logger"
)

// repoBuilder wires the repository; tests swap it for one pointed at a fake pod
type repoBuilder func(verbose bool) (*graph.Repository, graph.User, error)

type cli struct {
	build   repoBuilder
	verbose bool

	repo *graph.Repository
	user graph.User
}

func newRootCmd(build repoBuilder) *cobra.Command {
	c := &cli{build: build}

	rootCmd := &cobra.Command{
		Use:           "graphctl",
		Short:         "Read and edit a Linked Data graph stored in pods",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			repo, user, err := c.build(c.verbose)
			if err != nil {
				return err
			}
			c.repo, c.user = repo, user
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(
		c.graphCmd(),
		c.findCmd(),
		c.writeCmd(),
		c.deleteCmd(),
		c.objectsCmd(),
		c.createNodeCmd(),
		c.severCmd(),
		c.rmCmd(),
	)
	return rootCmd
}

func (c *cli) graphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph [uri]",
		Short: "Print the center resource and its linked neighbours",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				graphMap graph.GraphMap
				err      error
			)
			if len(args) == 1 {
				graphMap, err = c.repo.GetGraphMapAtURI(cmd.Context(), args[0])
			} else {
				graphMap, err = c.repo.GetGraphMapAtIdentity(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, graphMap)
		},
	}
}

func (c *cli) findCmd() *cobra.Command {
	var subject, predicate, object string
	var literal bool

	cmd := &cobra.Command{
		Use:   "find <uri>",
		Short: "List the triples of a resource, optionally filtered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pattern rdf.Pattern
			if subject != "" {
				pattern.Subject = rdf.Bind(rdf.IRI(subject))
			}
			if predicate != "" {
				pattern.Predicate = rdf.Bind(rdf.IRI(predicate))
			}
			if object != "" {
				pattern.Object = rdf.Bind(objectTerm(object, literal))
			}

			triples, err := c.repo.FindTriples(cmd.Context(), args[0], pattern)
			if err != nil {
				return err
			}
			return printJSON(cmd, triples)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject IRI to match")
	cmd.Flags().StringVar(&predicate, "predicate", "", "predicate IRI to match")
	cmd.Flags().StringVar(&object, "object", "", "object to match")
	cmd.Flags().BoolVar(&literal, "literal", false, "treat --object as a plain literal")
	return cmd
}

func (c *cli) writeCmd() *cobra.Command {
	var literal bool

	cmd := &cobra.Command{
		Use:   "write <subject> <predicate> <object>",
		Short: "Insert a triple into the subject's document unless already present",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := c.repo.WriteTriple(cmd.Context(),
				rdf.IRI(args[0]), rdf.IRI(args[1]), objectTerm(args[2], literal), false)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"outcome": outcome.String()})
		},
	}
	cmd.Flags().BoolVar(&literal, "literal", false, "treat the object as a plain literal")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	var literal bool

	cmd := &cobra.Command{
		Use:   "delete <uri> <subject> <predicate> <object>",
		Short: "Delete a triple from a resource",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.repo.DeleteTriple(cmd.Context(), args[0],
				rdf.IRI(args[1]), rdf.IRI(args[2]), objectTerm(args[3], literal))
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"status": "deleted"})
		},
	}
	cmd.Flags().BoolVar(&literal, "literal", false, "treat the object as a plain literal")
	return cmd
}

func (c *cli) objectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "objects <uri> <field>",
		Short: "Look up a profile field such as name or email",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			objects, err := c.repo.FindObjectsByTerm(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, objects)
		},
	}
}

func (c *cli) createNodeCmd() *cobra.Command {
	var title, description, kind, center, centerStorage, imagePath, imageURI string

	cmd := &cobra.Command{
		Use:   "create-node",
		Short: "Create a node linked from a center resource",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if center == "" {
				center = c.user.WebID
			}

			var attachment graph.Attachment
			switch {
			case imagePath != "":
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("failed to read image: %w", err)
				}
				attachment = graph.FileAttachment{
					Name:        filepath.Base(imagePath),
					ContentType: mime.TypeByExtension(filepath.Ext(imagePath)),
					Data:        data,
				}
			case imageURI != "":
				attachment = graph.LinkAttachment{URI: imageURI}
			}

			uri, err := c.repo.CreateNode(cmd.Context(), graph.NewNode{
				Actor:       c.user,
				Center:      graph.Center{URI: center, Storage: centerStorage},
				Title:       title,
				Description: description,
				Attachment:  attachment,
				Kind:        vocab.ParseNodeKind(kind),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"uri": uri})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "node title (required)")
	cmd.Flags().StringVar(&description, "description", "", "node description")
	cmd.Flags().StringVar(&kind, "kind", "default", "node kind: default or image")
	cmd.Flags().StringVar(&center, "center", "", "center resource URI (defaults to WEBID)")
	cmd.Flags().StringVar(&centerStorage, "center-storage", "", "storage container of the center")
	cmd.Flags().StringVar(&imagePath, "image", "", "local image file to upload and attach")
	cmd.Flags().StringVar(&imageURI, "image-uri", "", "existing image URI to attach")
	_ = cmd.MarkFlagRequired("title")
	cmd.MarkFlagsMutuallyExclusive("image", "image-uri")
	return cmd
}

func (c *cli) severCmd() *cobra.Command {
	var link string

	cmd := &cobra.Command{
		Use:   "sever <center> <neighbour>",
		Short: "Remove the link from a center to a neighbour",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := vocab.ParseLinkKind(link)
			if err != nil {
				return err
			}
			predicate, _ := c.repo.Vocabulary().LinkPredicate(kind)
			if err := c.repo.SeverLink(cmd.Context(), args[0], args[1], predicate); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"status": "severed"})
		},
	}
	cmd.Flags().StringVar(&link, "link", "relatedTo", "link kind: relatedTo or knows")
	return cmd
}

func (c *cli) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <uri>",
		Short: "Delete a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.repo.DeleteResource(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"status": "deleted"})
		},
	}
}

func objectTerm(value string, literal bool) rdf.Term {
	if literal {
		return rdf.Literal(value)
	}
	return rdf.IRI(value)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
