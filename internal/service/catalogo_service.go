package service

import (
	"context"

	"cotizador/internal/dto"
	"cotizador/internal/repository"
)

// CatalogoService serves the pick lists used while building a quotation.
type CatalogoService interface {
	ClientesActivos(ctx context.Context) ([]dto.ClienteResumen, error)
	OperariosActivos(ctx context.Context) ([]dto.OperarioResumen, error)
	PlataformasDisponibles(ctx context.Context) ([]dto.PlataformaResumen, error)
}

type catalogoService struct {
	clienteRepo    repository.ClienteRepository
	operarioRepo   repository.OperarioRepository
	plataformaRepo repository.PlataformaRepository
}

func NewCatalogoService(
	clienteRepo repository.ClienteRepository,
	operarioRepo repository.OperarioRepository,
	plataformaRepo repository.PlataformaRepository,
) CatalogoService {
	return &catalogoService{clienteRepo: clienteRepo, operarioRepo: operarioRepo, plataformaRepo: plataformaRepo}
}

func (s *catalogoService) ClientesActivos(ctx context.Context) ([]dto.ClienteResumen, error) {
	clientes, err := s.clienteRepo.ListActivos(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ClienteResumen, 0, len(clientes))
	for i := range clientes {
		out = append(out, *toClienteResumen(&clientes[i]))
	}
	return out, nil
}

func (s *catalogoService) OperariosActivos(ctx context.Context) ([]dto.OperarioResumen, error) {
	operarios, err := s.operarioRepo.ListActivos(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.OperarioResumen, 0, len(operarios))
	for i := range operarios {
		out = append(out, *toOperarioResumen(&operarios[i]))
	}
	return out, nil
}

func (s *catalogoService) PlataformasDisponibles(ctx context.Context) ([]dto.PlataformaResumen, error) {
	plataformas, err := s.plataformaRepo.ListDisponibles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PlataformaResumen, 0, len(plataformas))
	for i := range plataformas {
		out = append(out, *toPlataformaResumen(&plataformas[i]))
	}
	return out, nil
}
