package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asolanog/conversia/internal/models"
	"github.com/asolanog/conversia/internal/service"
)

var (
	productDescription string
	productKeywords    []string
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Manage product types",
	Long: `Manage the product catalog used for mention detection.

Examples:
  conversia products add "Seguro Hogar" --keywords hogar,vivienda
  conversia products list
  conversia products scan <conversation-id>`,
}

var productsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a product type",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductsAdd,
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List product types",
	RunE:  runProductsList,
}

var productsScanCmd = &cobra.Command{
	Use:   "scan <conversation-id>",
	Short: "Detect product mentions in a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductsScan,
}

func init() {
	productsAddCmd.Flags().StringVarP(&productDescription, "description", "d", "", "product description")
	productsAddCmd.Flags().StringSliceVarP(&productKeywords, "keywords", "k", nil, "detection keywords")

	productsCmd.AddCommand(productsAddCmd)
	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsScanCmd)
}

func runProductsAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	input := models.ProductTypeInput{
		Name:     args[0],
		Keywords: productKeywords,
	}
	if productDescription != "" {
		input.Description = &productDescription
	}

	svc := service.NewProductService(dbClient, nil)
	created, err := svc.Create(ctx, input)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateProduct) {
			return fmt.Errorf("product %q already exists", args[0])
		}
		return fmt.Errorf("create product: %w", err)
	}

	fmt.Printf("Created product %q with %d keywords\n", created.Name, len(created.Keywords))
	return nil
}

func runProductsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc := service.NewProductService(dbClient, nil)
	products, err := svc.List(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	if len(products) == 0 {
		fmt.Println("No products found.")
		return nil
	}

	fmt.Printf("Products (%d):\n\n", len(products))
	for _, p := range products {
		fmt.Printf("- %s\n", p.Name)
		if verbose {
			if p.Description != nil && *p.Description != "" {
				fmt.Printf("  %s\n", *p.Description)
			}
			if len(p.Keywords) > 0 {
				fmt.Printf("  Keywords: %v\n", p.Keywords)
			}
		}
	}
	return nil
}

func runProductsScan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc := service.NewProductService(dbClient, nil)
	count, err := svc.ScanConversation(ctx, args[0])
	if err != nil {
		return fmt.Errorf("scan conversation: %w", err)
	}

	fmt.Printf("Recorded %d product mentions\n", count)
	return nil
}
