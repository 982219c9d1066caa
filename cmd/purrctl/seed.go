package main

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/purriosity/purriosity-server/internal/backend"
	"github.com/purriosity/purriosity-server/internal/domain"
)

//go:embed seed.yaml
var defaultSeed []byte

var seedFlags struct {
	file  string
	force bool
}

// seedFile is the YAML layout of a seed file.
type seedFile struct {
	Categories []struct {
		Name  string `yaml:"name"`
		Emoji string `yaml:"emoji"`
	} `yaml:"categories"`
	Products []struct {
		Title            string   `yaml:"title"`
		ShortDescription string   `yaml:"short_description"`
		Description      string   `yaml:"description"`
		Images           []string `yaml:"images"`
		Price            float64  `yaml:"price"`
		Currency         string   `yaml:"currency"`
		AffiliateURL     string   `yaml:"affiliate_url"`
		StarRating       float64  `yaml:"star_rating"`
		Tags             []string `yaml:"tags"`
		Categories       []string `yaml:"categories"`
	} `yaml:"products"`
	Posts []struct {
		Title      string   `yaml:"title"`
		Excerpt    string   `yaml:"excerpt"`
		Content    string   `yaml:"content"`
		CoverImage string   `yaml:"cover_image"`
		AuthorName string   `yaml:"author_name"`
		Tags       []string `yaml:"tags"`
	} `yaml:"posts"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load categories, products and blog posts from a YAML file",
	Long:  "Seeds an empty backend. Without --file the built-in sample catalog is used. Tables that already hold rows are skipped unless --force is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		data := defaultSeed
		if seedFlags.file != "" {
			var err error
			if data, err = os.ReadFile(seedFlags.file); err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
		}

		var seed seedFile
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return fmt.Errorf("parse seed file: %w", err)
		}

		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		return runSeed(cmd.Context(), a, seed, cmd.OutOrStdout())
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFlags.file, "file", "f", "", "YAML seed file (default: built-in sample catalog)")
	seedCmd.Flags().BoolVar(&seedFlags.force, "force", false, "Insert even when the tables already hold rows")
}

func runSeed(ctx context.Context, a *app, seed seedFile, out io.Writer) error {
	if ok, err := shouldSeed(ctx, a, backend.TableCategories); err != nil {
		return err
	} else if ok {
		for _, c := range seed.Categories {
			if _, err := a.categories.Add(ctx, domain.CategoryInput{Name: c.Name, Emoji: c.Emoji}); err != nil {
				return fmt.Errorf("category %q: %w", c.Name, err)
			}
		}
		fmt.Fprintf(out, "categories: %d added\n", len(seed.Categories))
	} else {
		fmt.Fprintln(out, "categories: skipped, table not empty")
	}

	if ok, err := shouldSeed(ctx, a, backend.TableProducts); err != nil {
		return err
	} else if ok {
		for _, p := range seed.Products {
			_, err := a.products.Create(ctx, domain.ProductInput{
				Title:            p.Title,
				ShortDescription: p.ShortDescription,
				Description:      p.Description,
				Images:           p.Images,
				Price:            p.Price,
				Currency:         p.Currency,
				AffiliateURL:     p.AffiliateURL,
				StarRating:       p.StarRating,
				Tags:             p.Tags,
				Categories:       p.Categories,
			})
			if err != nil {
				return fmt.Errorf("product %q: %w", p.Title, err)
			}
		}
		fmt.Fprintf(out, "products: %d added\n", len(seed.Products))
	} else {
		fmt.Fprintln(out, "products: skipped, table not empty")
	}

	if ok, err := shouldSeed(ctx, a, backend.TableBlogPosts); err != nil {
		return err
	} else if ok {
		for _, p := range seed.Posts {
			_, err := a.blog.Create(ctx, domain.BlogPostInput{
				Title:      p.Title,
				Excerpt:    p.Excerpt,
				Content:    p.Content,
				CoverImage: p.CoverImage,
				AuthorName: p.AuthorName,
				Tags:       p.Tags,
			})
			if err != nil {
				return fmt.Errorf("post %q: %w", p.Title, err)
			}
		}
		fmt.Fprintf(out, "posts: %d added\n", len(seed.Posts))
	} else {
		fmt.Fprintln(out, "posts: skipped, table not empty")
	}

	return nil
}

func shouldSeed(ctx context.Context, a *app, table string) (bool, error) {
	if seedFlags.force {
		return true, nil
	}
	rows, err := a.client.Select(ctx, backend.From(table).Select("id").Take(1))
	if err != nil {
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	return len(rows) == 0, nil
}
