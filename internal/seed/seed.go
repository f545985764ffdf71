package seed

import (
	"context"
	"fmt"

	"mmdr-storefront/internal/domain"

	"go.uber.org/zap"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

func price(v int64) *int64 { return &v }

// Catalog is the demo catalog loaded by cmd/seed.
func Catalog() []domain.Product {
	return []domain.Product{
		{
			Name:          "Cubre Asientos Universal",
			Description:   "Cubre asientos universal de alta calidad, fabricado con materiales resistentes y duraderos. Compatible con la mayoría de los vehículos.",
			Price:         25000,
			OriginalPrice: price(36000),
			Stock:         15,
			Category:      domain.CategorySeats,
			Image:         "Imagenes/cubreasientosuniversal.webp",
			Discount:      31,
			Featured:      true,
			Tags:          []string{"universal", "asientos", "interior"},
		},
		{
			Name:          "Cubre Volante Universal",
			Description:   "Cubre volante universal ergonómico, con diseño antideslizante. Proporciona mejor agarre y comodidad durante la conducción.",
			Price:         16000,
			OriginalPrice: price(18800),
			Stock:         8,
			Category:      domain.CategoryWheels,
			Image:         "Imagenes/cubrevolanteuniversal.webp",
			Discount:      15,
			Tags:          []string{"universal", "volante", "confort"},
		},
		{
			Name:          "Pomo Reicing",
			Description:   "Pomo de palanca deportivo estilo racing. Diseño ergonómico con acabados de alta calidad.",
			Price:         8000,
			OriginalPrice: price(17000),
			Stock:         3,
			Category:      domain.CategoryAccessories,
			Image:         "Imagenes/pomoreicing.webp",
			Discount:      53,
			Tags:          []string{"pomo", "palanca", "deportivo"},
		},
		{
			Name:        "Volante MOMO Edición Limitada",
			Description: "Volante deportivo MOMO edición especial. Fabricado con materiales premium, diseño exclusivo y ergonómico.",
			Price:       78000,
			Stock:       2,
			Category:    domain.CategoryWheels,
			Image:       "Imagenes/VolanteMOMOedicionlimitada.jpg",
			Featured:    true,
			Tags:        []string{"momo", "deportivo", "premium", "edición limitada"},
		},
		{
			Name:          "Kit Suspensión Neumática",
			Description:   "Sistema completo de suspensión neumática. Incluye compresor, tanque, válvulas y todos los accesorios necesarios para la instalación.",
			Price:         242000,
			OriginalPrice: price(400000),
			Stock:         1,
			Category:      domain.CategorySuspension,
			Image:         "Imagenes/kitsuspensionneumatica.webp",
			Discount:      40,
			Featured:      true,
			Tags:          []string{"suspensión", "neumática", "kit completo"},
		},
		{
			Name:        "Kit LED Premium",
			Description: "Kit de luces LED de alta intensidad para interior y exterior. Incluye múltiples colores programables y control remoto.",
			Price:       15000,
			Stock:       12,
			Category:    domain.CategoryElectronics,
			Image:       "Imagenes/kitled.jpg",
			Tags:        []string{"led", "luces", "iluminación"},
		},
		{
			Name:        "Kit Turbo Completo",
			Description: "Sistema turbo completo para mayor potencia. Incluye turbocompresor, intercooler, tuberías y abrazaderas.",
			Price:       350000,
			Stock:       1,
			Category:    domain.CategoryAccessories,
			Image:       "Imagenes/kitturbo.jpg",
			Featured:    true,
			Tags:        []string{"turbo", "performance", "motor"},
		},
		{
			Name:          "Espirales con Refuerzo",
			Description:   "Espirales reforzados para suspensión deportiva. Mayor rigidez y mejor respuesta en curvas.",
			Price:         45000,
			OriginalPrice: price(60000),
			Stock:         6,
			Category:      domain.CategorySuspension,
			Image:         "Imagenes/espiralesconrefuerzo.jpg",
			Discount:      25,
			Tags:          []string{"espirales", "suspensión", "deportivo"},
		},
	}
}

// Apply upserts the demo catalog. It is idempotent: products are keyed by name.
func Apply(ctx context.Context, products ProductWriter, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := 0
	for _, p := range Catalog() {
		p.IsActive = true
		saved, err := products.Upsert(ctx, p)
		if err != nil {
			return n, fmt.Errorf("upsert product %s: %w", p.Name, err)
		}
		logger.Debug("seeded product", zap.String("id", saved.ID), zap.String("name", saved.Name), zap.Int("stock", saved.Stock))
		n++
	}
	logger.Info("seed applied", zap.Int("products", n))
	return n, nil
}
